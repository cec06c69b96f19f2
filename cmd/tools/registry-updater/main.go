// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tour-estimate-workers/pkg/registry"
)

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	path := fs.String("path", registry.DefaultPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID (e.g., generate-estimate)")
	displayName := fs.String("displayName", "", "Display Name (e.g., Generate Estimate)")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "", "Category (estimate, session)")
	taskType := fs.String("taskType", "", "Zeebe job type; defaults to the ID")
	version := fs.String("version", "1.0.0", "Version")
	status := fs.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")
	fs.Parse(args)

	if *id == "" || *displayName == "" || *description == "" || *category == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, description and category are required")
	}
	if *taskType == "" {
		*taskType = *id
	}

	reg, err := registry.LoadRegistry(*path)
	if os.IsNotExist(err) {
		reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	err = reg.Add(registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		InputSchema:          map[string]interface{}{},
		OutputSchema:         map[string]interface{}{},
		ErrorCodes:           []string{},
		Timeout:              "15s",
		Retries:              3,
		Workflows:            []string{},
		Tags:                 []string{},
	}, time.Now())
	if err != nil {
		return err
	}
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", registry.DefaultPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID to update")
	field := fs.String("field", "", "Field to update (status, version, etc.)")
	value := fs.String("value", "", "New value for the field")
	fs.Parse(args)

	if *id == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("id, field and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var a *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *id {
			a = &reg.Activities[i]
			break
		}
	}
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", *id)
	}

	switch *field {
	case "status":
		a.ImplementationStatus = *value
	case "version":
		a.Version = *value
	case "displayName":
		a.DisplayName = *value
	case "description":
		a.Description = *value
	case "timeout":
		a.Timeout = *value
	case "retries":
		retries, err := strconv.Atoi(*value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", registry.DefaultPath, "Path to registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	path := fs.String("path", registry.DefaultPath, "Path to registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for _, a := range reg.Activities {
		fmt.Printf("%-24s %-10s %-12s %-6s %-32s %s\n", a.TaskType, a.Category, a.ImplementationStatus,
			a.Timeout, strings.Join(a.RequiredInputs(), ","), a.DisplayName)
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	path := fs.String("path", registry.DefaultPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Zeebe job type to check")
	input := fs.String("input", "", "Job variables as JSON")
	output := fs.String("output", "", "Completion variables as JSON")
	fs.Parse(args)

	if *taskType == "" || (*input == "" && *output == "") {
		fs.Usage()
		return fmt.Errorf("taskType and one of input or output are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a, ok := reg.Find(*taskType)
	if !ok {
		return fmt.Errorf("task type %s not declared", *taskType)
	}

	if *input != "" {
		vars, err := parseVars(*input)
		if err != nil {
			return err
		}
		if err := a.CheckInput(vars); err != nil {
			return err
		}
	}
	if *output != "" {
		vars, err := parseVars(*output)
		if err != nil {
			return err
		}
		if err := a.CheckOutput(vars); err != nil {
			return err
		}
	}
	fmt.Printf("Variables match %s\n", a.ID)
	return nil
}

func parseVars(raw string) (map[string]interface{}, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("invalid variables JSON: %w", err)
	}
	return vars, nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file
  list     List registered activities
  check    Check job or completion variables against an activity's schemas
  help     Show this help message

Examples:
  registry-updater add -id generate-estimate -displayName "Generate Estimate" -description "Drafts an estimate" -category estimate
  registry-updater update -id generate-estimate -field status -value verified
  registry-updater validate -path configs/activity-registry.json
  registry-updater check -taskType respond-to-estimate -input '{"sessionId":"s-1","response":"approved"}'`)
}

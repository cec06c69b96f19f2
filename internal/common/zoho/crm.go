// internal/common/zoho/crm.go
package zoho

import (
	"context"
	"fmt"
	"strings"
	"time"

	httpclient "tour-estimate-workers/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	oauthToken string
	baseURL    string
	http       *httpclient.Client
}

// Lead is a prospective customer pushed to the CRM when a quote is submitted.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email,omitempty"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Phone       string `json:"Phone,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type createResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		http:       httpclient.NewClient(30*time.Second, httpclient.WithRetries(2, 500*time.Millisecond)),
	}
}

// CreateLead inserts a lead and returns its CRM id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	if lead.LastName == "" {
		// Last_Name is mandatory for the Leads module
		lead.LastName = "Guest"
	}

	var resp createResponse
	err := c.http.PostJSON(ctx, c.baseURL+"/Leads", c.headers(),
		map[string]interface{}{"data": []Lead{*lead}}, &resp)
	if err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("create lead: no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("create lead: %s (%s)", resp.Data[0].Message, resp.Data[0].Code)
	}
	return resp.Data[0].Details.ID, nil
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
}

// SplitName splits a full name into first and last for CRM records.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

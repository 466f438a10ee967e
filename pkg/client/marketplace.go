package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sawa-platform/sawa/pkg/api"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// GetDashboard returns the role-aware dashboard counters.
func (c *Client) GetDashboard(ctx context.Context) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.get(ctx, api.PathDashboard, &d); err != nil {
		return nil, fmt.Errorf("client.GetDashboard: %w", err)
	}
	return &d, nil
}

// --- Service requests ---

// ListServiceRequests lists service requests, optionally filtered by status.
func (c *Client) ListServiceRequests(ctx context.Context, status string) (domain.List[domain.ServiceRequest], error) {
	var list domain.List[domain.ServiceRequest]
	if err := c.get(ctx, withQuery(api.PathServiceRequest, "status", status), &list); err != nil {
		return list, fmt.Errorf("client.ListServiceRequests: %w", err)
	}
	return list, nil
}

// GetServiceRequest fetches a single service request.
func (c *Client) GetServiceRequest(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	var sr domain.ServiceRequest
	if err := c.get(ctx, itemPath(api.PathServiceRequest, id), &sr); err != nil {
		return nil, fmt.Errorf("client.GetServiceRequest: %w", err)
	}
	return &sr, nil
}

// CreateServiceRequest posts a new service request. An empty Status is sent
// as "open".
func (c *Client) CreateServiceRequest(ctx context.Context, in domain.ServiceRequestInput) (*domain.ServiceRequest, error) {
	if in.Status == "" {
		in.Status = domain.RequestOpen
	}
	for _, list := range []*[]string{&in.ServiceTypes, &in.TechnicianRequirements, &in.SafetyRequirements, &in.AlternativeDates} {
		if *list == nil {
			*list = []string{}
		}
	}
	var created domain.ServiceRequest
	if err := c.post(ctx, api.PathServiceRequest, in, &created); err != nil {
		return nil, fmt.Errorf("client.CreateServiceRequest: %w", err)
	}
	return &created, nil
}

// DeleteServiceRequest deletes one of the buyer's service requests.
func (c *Client) DeleteServiceRequest(ctx context.Context, id int64) error {
	if err := c.doRequest(ctx, http.MethodDelete, itemPath(api.PathServiceRequest, id), nil, nil, true); err != nil {
		return fmt.Errorf("client.DeleteServiceRequest: %w", err)
	}
	return nil
}

// --- Applications ---

// ListApplications lists applications, optionally filtered by status.
func (c *Client) ListApplications(ctx context.Context, status string) (domain.List[domain.Application], error) {
	var list domain.List[domain.Application]
	if err := c.get(ctx, withQuery(api.PathApplications, "status", status), &list); err != nil {
		return list, fmt.Errorf("client.ListApplications: %w", err)
	}
	return list, nil
}

// CreateApplication applies to a service request.
func (c *Client) CreateApplication(ctx context.Context, in domain.ApplicationInput) (*domain.Application, error) {
	var created domain.Application
	if err := c.post(ctx, api.PathApplications, in, &created); err != nil {
		return nil, fmt.Errorf("client.CreateApplication: %w", err)
	}
	return &created, nil
}

// AcceptApplication accepts an application on one of the buyer's requests.
func (c *Client) AcceptApplication(ctx context.Context, id int64) error {
	if err := c.post(ctx, itemPath(api.PathApplications, id)+"accept/", nil, nil); err != nil {
		return fmt.Errorf("client.AcceptApplication: %w", err)
	}
	return nil
}

// RejectApplication rejects an application on one of the buyer's requests.
func (c *Client) RejectApplication(ctx context.Context, id int64) error {
	if err := c.post(ctx, itemPath(api.PathApplications, id)+"reject/", nil, nil); err != nil {
		return fmt.Errorf("client.RejectApplication: %w", err)
	}
	return nil
}

// --- Reviews ---

// ListReviews lists reviews; kind is "", domain.ReviewsGiven or domain.ReviewsReceived.
func (c *Client) ListReviews(ctx context.Context, kind string) (domain.List[domain.Review], error) {
	var list domain.List[domain.Review]
	if err := c.get(ctx, withQuery(api.PathReviews, "type", kind), &list); err != nil {
		return list, fmt.Errorf("client.ListReviews: %w", err)
	}
	return list, nil
}

// CreateReview leaves a review for the other party of a request.
func (c *Client) CreateReview(ctx context.Context, in domain.ReviewInput) (*domain.Review, error) {
	var created domain.Review
	if err := c.post(ctx, api.PathReviews, in, &created); err != nil {
		return nil, fmt.Errorf("client.CreateReview: %w", err)
	}
	return &created, nil
}

// --- Notifications ---

// ListNotifications lists the user's notifications.
func (c *Client) ListNotifications(ctx context.Context) (domain.List[domain.Notification], error) {
	var list domain.List[domain.Notification]
	if err := c.get(ctx, api.PathNotifications, &list); err != nil {
		return list, fmt.Errorf("client.ListNotifications: %w", err)
	}
	return list, nil
}

// MarkNotificationRead marks a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	if err := c.doRequest(ctx, http.MethodPut, itemPath(api.PathNotifications, id)+"read/", nil, nil, true); err != nil {
		return fmt.Errorf("client.MarkNotificationRead: %w", err)
	}
	return nil
}

// --- Chat ---

// ListConversations lists the user's chat conversations.
func (c *Client) ListConversations(ctx context.Context) (domain.List[domain.Conversation], error) {
	var list domain.List[domain.Conversation]
	if err := c.get(ctx, api.PathConversations, &list); err != nil {
		return list, fmt.Errorf("client.ListConversations: %w", err)
	}
	return list, nil
}

// ListThreadMessages lists the messages of a chat thread.
func (c *Client) ListThreadMessages(ctx context.Context, threadID int64) (domain.List[domain.ChatMessage], error) {
	var list domain.List[domain.ChatMessage]
	if err := c.get(ctx, itemPath(api.PathThreads, threadID)+"messages/", &list); err != nil {
		return list, fmt.Errorf("client.ListThreadMessages: %w", err)
	}
	return list, nil
}

// SendThreadMessage posts a message to a chat thread.
func (c *Client) SendThreadMessage(ctx context.Context, threadID int64, content string) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	body := map[string]string{"content": content}
	if err := c.post(ctx, itemPath(api.PathThreads, threadID)+"messages/", body, &msg); err != nil {
		return nil, fmt.Errorf("client.SendThreadMessage: %w", err)
	}
	return &msg, nil
}

// itemPath returns "<collection><id>/".
func itemPath(collection string, id int64) string {
	return collection + strconv.FormatInt(id, 10) + "/"
}

// withQuery appends ?key=value when value is non-empty.
func withQuery(path, key, value string) string {
	if value == "" {
		return path
	}
	params := url.Values{}
	params.Set(key, value)
	return path + "?" + params.Encode()
}

// --- Role profiles ---

func roleProfilePath(role string) string {
	if role == domain.RoleBuyer {
		return api.PathBuyerProfile
	}
	return api.PathProviderProfile
}

// GetRoleProfile fetches the buyer or provider profile for role.
func (c *Client) GetRoleProfile(ctx context.Context, role string) (*domain.RoleProfile, error) {
	var p domain.RoleProfile
	if err := c.get(ctx, roleProfilePath(role), &p); err != nil {
		return nil, fmt.Errorf("client.GetRoleProfile: %w", err)
	}
	return &p, nil
}

// UpdateRoleProfile patches the buyer or provider profile for role and
// returns the stored result.
func (c *Client) UpdateRoleProfile(ctx context.Context, role string, p domain.RoleProfile) (*domain.RoleProfile, error) {
	var out domain.RoleProfile
	if err := c.doRequest(ctx, http.MethodPatch, roleProfilePath(role), p, &out, true); err != nil {
		return nil, fmt.Errorf("client.UpdateRoleProfile: %w", err)
	}
	return &out, nil
}

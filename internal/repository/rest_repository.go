package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"go.uber.org/zap"
)

const (
	customerSelect   = "*,contact:Contact(*),Avatar(*)"
	freelancerSelect = "*,contact:Contact(*),Avatar(*),skills:SkillSet(*),workExperience:WorkExperience(*)"
)

// APIError is a non-2xx answer from the hosted data API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("data api %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("data api %d: %s", e.StatusCode, e.Message)
}

// RESTRepository talks to a PostgREST style API such as the one a hosted
// Supabase project exposes under /rest/v1.
type RESTRepository struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Logger  *zap.Logger
}

func NewRESTRepository(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RESTRepository {
	return &RESTRepository{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

func (r *RESTRepository) FetchCustomers(ctx context.Context) ([]model.Customer, error) {
	var rows []json.RawMessage
	if err := r.do(ctx, http.MethodGet, model.TableCustomer, url.Values{"select": {customerSelect}}, nil, &rows); err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}

	customers := make([]model.Customer, 0, len(rows))
	for _, doc := range rows {
		c, err := decodeCustomer(doc)
		if err != nil {
			return nil, fmt.Errorf("fetch customers: %w", err)
		}
		customers = append(customers, c)
	}

	r.Logger.Debug("Fetched customers", zap.Int("count", len(customers)))
	return customers, nil
}

func (r *RESTRepository) FetchFreelancers(ctx context.Context) ([]model.Freelancer, error) {
	var rows []json.RawMessage
	if err := r.do(ctx, http.MethodGet, model.TableFreelancer, url.Values{"select": {freelancerSelect}}, nil, &rows); err != nil {
		return nil, fmt.Errorf("fetch freelancers: %w", err)
	}

	freelancers := make([]model.Freelancer, 0, len(rows))
	for _, doc := range rows {
		f, err := decodeFreelancer(doc)
		if err != nil {
			return nil, fmt.Errorf("fetch freelancers: %w", err)
		}
		freelancers = append(freelancers, f)
	}

	r.Logger.Debug("Fetched freelancers", zap.Int("count", len(freelancers)))
	return freelancers, nil
}

func (r *RESTRepository) UpdateStatus(ctx context.Context, table model.Table, id string, status model.Status) error {
	if err := writableTable(table); err != nil {
		return err
	}

	body := map[string]string{"status": string(status)}
	if err := r.do(ctx, http.MethodPatch, table, byID(id), body, nil); err != nil {
		r.Logger.Error("UpdateStatus failed", zap.Error(err), zap.String("table", string(table)), zap.String("id", id))
		return fmt.Errorf("update %s status: %w", table, err)
	}
	return nil
}

func (r *RESTRepository) Delete(ctx context.Context, table model.Table, id string) error {
	if err := writableTable(table); err != nil {
		return err
	}

	if err := r.do(ctx, http.MethodDelete, table, byID(id), nil, nil); err != nil {
		r.Logger.Error("Delete failed", zap.Error(err), zap.String("table", string(table)), zap.String("id", id))
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func byID(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

func (r *RESTRepository) do(ctx context.Context, method string, table model.Table, query url.Values, in, out any) error {
	endpoint := r.BaseURL + "/rest/v1/" + url.PathEscape(string(table))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request failed: %w", err)
	}
	req.Header.Set("apikey", r.APIKey)
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSON decode failed: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

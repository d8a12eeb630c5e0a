package structure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rankforge/linkmesh/internal/model"
)

// HTTPSource implements Source against the structure subsystem's HTTP/JSON API.
type HTTPSource struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTP source targeting the given base URL
// (e.g. "http://structure.internal:8080"). When token is non-empty, an
// Authorization header is set on every request.
func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP source.
func (s *HTTPSource) Close() error { return nil }

func (s *HTTPSource) ListNetworkIDs(ctx context.Context) ([]string, error) {
	var resp struct {
		Networks []struct {
			ID string `json:"id"`
		} `json:"networks"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/v1/networks", nil, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Networks))
	for _, n := range resp.Networks {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func (s *HTTPSource) ListEntries(ctx context.Context, networkID string) ([]*model.StructureEntry, error) {
	var resp struct {
		Entries []wireEntry `json:"entries"`
	}
	path := "/v1/networks/" + url.PathEscape(networkID) + "/entries"
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	entries := make([]*model.StructureEntry, 0, len(resp.Entries))
	for _, w := range resp.Entries {
		e, err := w.toEntry(networkID)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", w.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// wireEntry is the structure service's entry representation. Older feeds
// carry a string tier_label instead of the numeric tier field; exactly one
// of the two is expected.
type wireEntry struct {
	ID            string   `json:"id"`
	NetworkID     string   `json:"network_id,omitempty"`
	Domain        string   `json:"domain"`
	Path          string   `json:"path,omitempty"`
	Tier          *int     `json:"tier,omitempty"`
	TierLabel     string   `json:"tier_label,omitempty"`
	DomainRole    string   `json:"domain_role"`
	TargetEntryID string   `json:"target_entry_id,omitempty"`
	IndexStatus   string   `json:"index_status,omitempty"`
	CanonicalURL  string   `json:"canonical_url,omitempty"`
	RedirectType  string   `json:"redirect_type,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

func (w wireEntry) toEntry(networkID string) (*model.StructureEntry, error) {
	tier := 0
	switch {
	case w.Tier != nil:
		tier = *w.Tier
	case w.TierLabel != "":
		n, err := parseLegacyTier(w.TierLabel)
		if err != nil {
			return nil, err
		}
		tier = n
	}

	if w.NetworkID == "" {
		w.NetworkID = networkID
	}

	e := &model.StructureEntry{
		ID:            w.ID,
		NetworkID:     w.NetworkID,
		Domain:        w.Domain,
		Path:          w.Path,
		Tier:          tier,
		Role:          model.DomainRole(w.DomainRole),
		TargetEntryID: w.TargetEntryID,
		IndexStatus:   model.IndexStatus(w.IndexStatus),
		CanonicalURL:  w.CanonicalURL,
		RedirectType:  model.RedirectType(w.RedirectType),
		Keywords:      w.Keywords,
	}
	if e.IndexStatus == "" {
		e.IndexStatus = model.IndexStatusIndex
	}
	if e.RedirectType == "" {
		e.RedirectType = model.RedirectNone
	}
	return e, model.ValidateEntry(e)
}

// APIError represents an error response from the structure service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("structure API error (status %d): %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// JSON response. A nil result discards the response body.
func (s *HTTPSource) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

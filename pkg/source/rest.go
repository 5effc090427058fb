package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
	"github.com/matst80/slask-docs/pkg/types"
)

var guidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// RestSource talks to a SharePoint style list REST API. Lists are addressed
// by GUID when the identifier looks like one, by title otherwise (fallback
// for older configurations).
type RestSource struct {
	SiteUrl string
	Client  *http.Client
	// Token is sent as a bearer Authorization header when set. How the
	// token is obtained is the host's concern.
	Token string
}

func NewRestSource(siteUrl string) *RestSource {
	return &RestSource{
		SiteUrl: strings.TrimSuffix(siteUrl, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RestSource) listPath(list string) string {
	if guidPattern.MatchString(strings.ToLower(list)) {
		return fmt.Sprintf("%s/_api/web/lists(guid'%s')", s.SiteUrl, list)
	}
	return fmt.Sprintf("%s/_api/web/lists/getbytitle('%s')", s.SiteUrl, url.PathEscape(list))
}

func (s *RestSource) do(ctx context.Context, method, rawUrl string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawUrl, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json;odata=nometadata")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;odata=nometadata")
		req.Header.Set("OData-Version", "")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	res, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%s", errorMessage(data, res.Status))
	}
	if out != nil && len(data) > 0 {
		return jsoncompat.Unmarshal(data, out)
	}
	return nil
}

// errorMessage digs the human readable message out of an OData error body,
// falling back to the HTTP status line.
func errorMessage(body []byte, status string) string {
	var verbose struct {
		Error struct {
			Message struct {
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}
	if err := jsoncompat.Unmarshal(body, &verbose); err == nil && verbose.Error.Message.Value != "" {
		return verbose.Error.Message.Value
	}
	var plain struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := jsoncompat.Unmarshal(body, &plain); err == nil && plain.Error.Message != "" {
		return plain.Error.Message
	}
	return status
}

type valueEnvelope struct {
	Value []map[string]any `json:"value"`
}

// FetchItems implements DocumentSource.
func (s *RestSource) FetchItems(ctx context.Context, library, categoryColumn, subCategoryColumn string, extraColumns []string) ([]types.DocumentItem, error) {
	if library == "" {
		return nil, &types.ConfigError{Missing: "document library"}
	}
	selects := []string{"Title", "FileRef", "Modified", "Id"}
	if categoryColumn != "" {
		selects = append(selects, categoryColumn)
	}
	if subCategoryColumn != "" {
		selects = append(selects, subCategoryColumn)
	}
	selects = append(selects, extraColumns...)
	selects = dedupe(selects)

	rawUrl := fmt.Sprintf("%s/items?$select=%s", s.listPath(library), url.QueryEscape(strings.Join(selects, ",")))
	var envelope valueEnvelope
	if err := s.do(ctx, http.MethodGet, rawUrl, nil, &envelope); err != nil {
		return nil, &types.FetchError{Op: "loading documents", Err: err}
	}

	items := make([]types.DocumentItem, 0, len(envelope.Value))
	for _, raw := range envelope.Value {
		item := types.DocumentItem{
			Id:          asString(raw["Id"]),
			Title:       asString(raw["Title"]),
			Category:    asString(raw[categoryColumn]),
			SubCategory: asString(raw[subCategoryColumn]),
			FileRef:     asString(raw["FileRef"]),
			Modified:    asTime(raw["Modified"]),
		}
		if len(extraColumns) > 0 {
			item.Fields = make(map[string]string, len(extraColumns))
			for _, c := range extraColumns {
				item.Fields[c] = asString(raw[c])
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchChoices implements DocumentSource.
func (s *RestSource) FetchChoices(ctx context.Context, library, column string) ([]string, error) {
	if column == "" {
		return []string{}, nil
	}
	rawUrl := fmt.Sprintf("%s/Fields?$filter=%s", s.listPath(library),
		url.QueryEscape(fmt.Sprintf("InternalName eq '%s'", column)))
	var envelope struct {
		Value []struct {
			Choices []string `json:"Choices"`
		} `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, rawUrl, nil, &envelope); err != nil {
		return nil, &types.FetchError{Op: "loading choices", Err: err}
	}
	if len(envelope.Value) == 0 || envelope.Value[0].Choices == nil {
		return []string{}, nil
	}
	return envelope.Value[0].Choices, nil
}

// Lists implements Catalog.
func (s *RestSource) Lists(ctx context.Context, baseTemplate int) ([]ListInfo, error) {
	rawUrl := fmt.Sprintf("%s/_api/web/lists?$filter=%s&$select=Id,Title", s.SiteUrl,
		url.QueryEscape(fmt.Sprintf("Hidden eq false and BaseTemplate eq %d", baseTemplate)))
	var envelope struct {
		Value []ListInfo `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, rawUrl, nil, &envelope); err != nil {
		return nil, &types.FetchError{Op: "loading lists", Err: err}
	}
	return envelope.Value, nil
}

// Columns implements Catalog.
func (s *RestSource) Columns(ctx context.Context, list string) ([]ColumnInfo, error) {
	rawUrl := fmt.Sprintf("%s/Fields?$filter=%s&$select=Title,InternalName,TypeAsString,ReadOnlyField", s.listPath(list),
		url.QueryEscape("Hidden eq false or CanBeDeleted eq true"))
	var envelope struct {
		Value []ColumnInfo `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, rawUrl, nil, &envelope); err != nil {
		return nil, &types.FetchError{Op: "loading columns", Err: err}
	}
	return envelope.Value, nil
}

// FindRequest implements RequestStore. The existence check is always fresh,
// request records are never cached locally.
func (s *RestSource) FindRequest(ctx context.Context, list, idColumn, idValue, requesterColumn, requesterValue string, extraColumns []string) (*RequestRecord, error) {
	selects := dedupe(append([]string{"Id"}, extraColumns...))
	filter := fmt.Sprintf("%s eq '%s' and %s eq '%s'", idColumn, escapeQuotes(idValue), requesterColumn, escapeQuotes(requesterValue))
	rawUrl := fmt.Sprintf("%s/items?$filter=%s&$select=%s&$top=1", s.listPath(list),
		url.QueryEscape(filter), url.QueryEscape(strings.Join(selects, ",")))

	var envelope valueEnvelope
	if err := s.do(ctx, http.MethodGet, rawUrl, nil, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Value) == 0 {
		return nil, nil
	}
	raw := envelope.Value[0]
	return &RequestRecord{Id: asString(raw["Id"]), Fields: raw}, nil
}

// CreateRequest implements RequestStore.
func (s *RestSource) CreateRequest(ctx context.Context, list string, fields map[string]any) error {
	body, err := jsoncompat.Marshal(fields)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, s.listPath(list)+"/items", body, nil)
}

// UpdateRequest implements RequestStore. Uses a MERGE so only the given
// fields change on the record.
func (s *RestSource) UpdateRequest(ctx context.Context, list, recordId string, fields map[string]any) error {
	body, err := jsoncompat.Marshal(fields)
	if err != nil {
		return err
	}
	rawUrl := fmt.Sprintf("%s/items(%s)", s.listPath(list), recordId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawUrl, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json;odata=nometadata")
	req.Header.Set("Content-Type", "application/json;odata=nometadata")
	req.Header.Set("X-HTTP-Method", "MERGE")
	req.Header.Set("IF-MATCH", "*")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	res, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%s", errorMessage(data, res.Status))
	}
	return nil
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func escapeQuotes(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case map[string]any:
		// lookup style projections carry their display value on Title
		for _, key := range []string{"Description", "Title", "title"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
)

// Paging is the paging metadata of a list or search response.
type Paging struct {
	Rows      int `json:"rows"`
	TotalRows int `json:"totalRows"`
	URLs      struct {
		NextPage string `json:"nextPage"`
	} `json:"urls"`
}

// Page is one decoded page of a result set.
type Page struct {
	Data   []json.RawMessage
	Paging *Paging
}

// DecodePage splits resp into its data list and paging metadata. A body
// without a "data" key, or whose "data" is not a list, is malformed. A null
// "data" is an empty page.
func DecodePage(resp *Response) (*Page, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &MalformedResponseError{URL: resp.URL, Reason: "body is not a JSON object"}
	}
	raw, ok := env["data"]
	if !ok {
		return nil, &MalformedResponseError{URL: resp.URL, Reason: `missing "data" key`}
	}

	page := &Page{}
	if err := json.Unmarshal(raw, &page.Data); err != nil {
		return nil, &MalformedResponseError{URL: resp.URL, Reason: `"data" is not a list`}
	}
	if p, ok := env["paging"]; ok {
		var paging Paging
		if err := json.Unmarshal(p, &paging); err == nil {
			page.Paging = &paging
		}
	}
	return page, nil
}

// Pager walks a multi-page result set by following nextPage links. It is
// forward-only and single-pass: pages are fetched on demand and not kept.
// A Pager must not be used from several goroutines at once.
type Pager struct {
	session *Session

	method string
	path   string
	first  *requestOptions
	rest   *requestOptions

	started bool
	done    bool
}

// Pages returns a Pager whose first page is fetched with GET path.
func (s *Session) Pages(path string, opts ...RequestOption) *Pager {
	ro := newRequestOptions(opts)
	return &Pager{
		session: s,
		method:  http.MethodGet,
		path:    path,
		first:   ro,
		rest:    ro.withoutBody(),
	}
}

// SearchPages returns a Pager whose first page is a POST of body to path.
// The server encodes the search state in nextPage, so every later page is a
// plain GET of that URL.
func (s *Session) SearchPages(path string, body any, opts ...RequestOption) *Pager {
	ro := newRequestOptions(opts)
	ro.json = body
	return &Pager{
		session: s,
		method:  http.MethodPost,
		path:    path,
		first:   ro,
		rest:    ro.withoutBody(),
	}
}

// Items flattens GET path into the items of every page.
func (s *Session) Items(ctx context.Context, path string, opts ...RequestOption) iter.Seq2[json.RawMessage, error] {
	return s.Pages(path, opts...).Items(ctx)
}

// SearchItems flattens a POST search into the items of every page.
func (s *Session) SearchItems(ctx context.Context, path string, body any, opts ...RequestOption) iter.Seq2[json.RawMessage, error] {
	return s.SearchPages(path, body, opts...).Items(ctx)
}

// HasMorePages reports whether NextPage may return another page.
func (p *Pager) HasMorePages() bool {
	return !p.done
}

// NextPage fetches the next page. Query parameters and the org-access flag
// are the same for every page. After an error the Pager is finished.
func (p *Pager) NextPage(ctx context.Context) (*Response, error) {
	if p.done {
		return nil, ErrNoMorePages
	}

	var (
		resp *Response
		err  error
	)
	if !p.started {
		p.started = true
		resp, err = p.session.do(ctx, p.method, p.path, p.first)
	} else {
		resp, err = p.session.do(ctx, http.MethodGet, p.path, p.rest)
	}
	if err != nil {
		p.done = true
		return nil, err
	}

	if next := resp.NextPageURL(); next != "" {
		p.path = next
	} else {
		p.done = true
	}
	return resp, nil
}

// All ranges over the remaining pages. An error is yielded once and ends
// the sequence.
func (p *Pager) All(ctx context.Context) iter.Seq2[*Response, error] {
	return func(yield func(*Response, error) bool) {
		for p.HasMorePages() {
			resp, err := p.NextPage(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}

// Items ranges over the data items of the remaining pages in server order.
// A page without a data list yields a *MalformedResponseError before any of
// its items and ends the sequence.
func (p *Pager) Items(ctx context.Context) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		for resp, err := range p.All(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			page, err := DecodePage(resp)
			if err != nil {
				p.done = true
				yield(nil, err)
				return
			}
			for _, item := range page.Data {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

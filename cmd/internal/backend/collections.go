package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Collection is typed CRUD over one backend collection.
// T is the read shape and In the writable shape.
type Collection[T any, In any] struct {
	c        *Client
	path     string
	noun     string
	populate Query
	sort     []string
}

func newCollection[T any, In any](c *Client, name, noun string, populate Query, sort []string) *Collection[T, In] {
	return &Collection[T, In]{
		c:        c,
		path:     "/api/" + name,
		noun:     noun,
		populate: populate,
		sort:     sort,
	}
}

// ListOptions narrows a list call.
type ListOptions struct {
	Filters  Query
	Sort     []string
	Page     int
	PageSize int
}

func (col *Collection[T, In]) listQuery(opts ListOptions) Query {
	q := Query{}
	if len(col.populate) > 0 {
		q["populate"] = col.populate
	}
	if len(opts.Filters) > 0 {
		q["filters"] = opts.Filters
	}
	sort := opts.Sort
	if len(sort) == 0 {
		sort = col.sort
	}
	if len(sort) > 0 {
		q["sort"] = sort
	}
	if opts.Page > 0 || opts.PageSize > 0 {
		p := Query{}
		if opts.Page > 0 {
			p["page"] = opts.Page
		}
		if opts.PageSize > 0 {
			p["pageSize"] = opts.PageSize
		}
		q["pagination"] = p
	}
	return q
}

// List returns one page of entries.
func (col *Collection[T, In]) List(ctx context.Context, token string, opts ListOptions) ([]T, Meta, error) {
	var env listEnvelope[T]
	err := col.c.do(ctx, call{
		op:       "list " + col.noun,
		method:   http.MethodGet,
		path:     col.path,
		query:    col.listQuery(opts),
		token:    token,
		fallback: "failed to fetch " + col.noun + "s",
	}, &env)
	if err != nil {
		return nil, Meta{}, err
	}
	if env.Data == nil {
		env.Data = []T{}
	}
	return env.Data, env.Meta, nil
}

// ListAll walks every page of the collection.
func (col *Collection[T, In]) ListAll(ctx context.Context, token string, filters Query) ([]T, error) {
	size := col.c.cfg.PageSize
	var all []T
	for page := 1; ; page++ {
		items, meta, err := col.List(ctx, token, ListOptions{Filters: filters, Page: page, PageSize: size})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) == 0 || meta.Pagination.PageCount <= page {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// Get returns the entry with documentID.
func (col *Collection[T, In]) Get(ctx context.Context, token, documentID string) (T, error) {
	var env itemEnvelope[T]
	q := Query{}
	if len(col.populate) > 0 {
		q["populate"] = col.populate
	}
	err := col.c.do(ctx, call{
		op:       "get " + col.noun,
		method:   http.MethodGet,
		path:     col.path + "/" + url.PathEscape(documentID),
		query:    q,
		token:    token,
		fallback: "failed to fetch " + col.noun,
	}, &env)
	return env.Data, err
}

// Create stores a new entry.
func (col *Collection[T, In]) Create(ctx context.Context, token string, in In) (T, error) {
	var env itemEnvelope[T]
	err := col.c.do(ctx, call{
		op:       "create " + col.noun,
		method:   http.MethodPost,
		path:     col.path,
		token:    token,
		body:     writeEnvelope[In]{Data: in},
		fallback: "failed to create " + col.noun,
	}, &env)
	return env.Data, err
}

// Update replaces the writable fields of the entry with documentID.
func (col *Collection[T, In]) Update(ctx context.Context, token, documentID string, in In) (T, error) {
	var env itemEnvelope[T]
	err := col.c.do(ctx, call{
		op:       "update " + col.noun,
		method:   http.MethodPut,
		path:     col.path + "/" + url.PathEscape(documentID),
		token:    token,
		body:     writeEnvelope[In]{Data: in},
		fallback: "failed to update " + col.noun,
	}, &env)
	return env.Data, err
}

// Delete removes the entry with documentID.
func (col *Collection[T, In]) Delete(ctx context.Context, token, documentID string) error {
	return col.c.do(ctx, call{
		op:       "delete " + col.noun,
		method:   http.MethodDelete,
		path:     col.path + "/" + url.PathEscape(documentID),
		token:    token,
		fallback: "failed to delete " + col.noun,
	}, nil)
}

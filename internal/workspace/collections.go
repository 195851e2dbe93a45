package workspace

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"reqbridge/internal/core"
)

// ErrInvalidMove is returned when a collection would become its own ancestor.
var ErrInvalidMove = errors.New("cannot move a collection into its own descendant")

// Collection is a named, orderable folder in the workspace tree.
type Collection struct {
	ID          string
	Name        string
	Description string
	ParentID    string // empty for roots
	Order       int
}

// ApiRequest is a saved request owned by exactly one collection.
type ApiRequest struct {
	ID           string
	Name         string
	Method       string
	URL          string
	Headers      map[string]string
	Params       map[string]string
	Body         string
	Auth         core.AuthConfig
	CollectionID string
	Order        int
}

// SearchResult is one row of a flat, discovery-ordered search listing.
type SearchResult struct {
	Type string // "collection" or "request"
	ID   string
	Name string
	Path string // ancestor names joined with " / "
	URL  string // requests only
}

// RemoteStore confirms mutations against a backing store. Every method is
// called before the local tree changes; an error aborts the mutation.
type RemoteStore interface {
	CreateCollection(c Collection) error
	UpdateCollection(c Collection) error
	DeleteCollection(id string) error
	MoveCollection(id, newParentID string, newOrder int) error
	CreateRequest(r ApiRequest) error
	UpdateRequest(r ApiRequest) error
	DeleteRequest(id string) error
	MoveRequest(id, newCollectionID string, newOrder int) error
}

// CollectionStore owns the collection tree, selection and expansion state,
// and the search results. The tree is an arena of nodes keyed by id with
// explicit parent/child id references, so cycle checks are an ancestor walk
// over ids. All mutations run to completion under the lock; a failed remote
// confirmation leaves the tree unchanged.
type CollectionStore struct {
	mu       sync.Mutex
	remote   RemoteStore // nil means local-only
	cols     map[string]*Collection
	children map[string][]string // parent id ("" = roots) -> ordered child ids
	reqs     map[string]*ApiRequest
	colReqs  map[string][]string // collection id -> ordered request ids

	selectedID string
	expanded   map[string]bool
	results    []SearchResult
}

func NewCollectionStore(remote RemoteStore) *CollectionStore {
	return &CollectionStore{
		remote:   remote,
		cols:     make(map[string]*Collection),
		children: make(map[string][]string),
		reqs:     make(map[string]*ApiRequest),
		colReqs:  make(map[string][]string),
		expanded: make(map[string]bool),
	}
}

// Create appends a new collection under parentID ("" for a root).
func (s *CollectionStore) Create(name, parentID string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		if _, ok := s.cols[parentID]; !ok {
			return Collection{}, fmt.Errorf("parent collection: %w", core.ErrNotFound)
		}
	}

	c := Collection{
		ID:       uuid.NewString(),
		Name:     name,
		ParentID: parentID,
		Order:    len(s.children[parentID]),
	}
	if err := s.confirm(func(r RemoteStore) error { return r.CreateCollection(c) }); err != nil {
		return Collection{}, err
	}

	s.cols[c.ID] = &c
	s.children[parentID] = append(s.children[parentID], c.ID)
	return c, nil
}

// CollectionPatch updates only the fields that are set.
type CollectionPatch struct {
	Name        *string
	Description *string
}

func (s *CollectionStore) Update(id string, patch CollectionPatch) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cols[id]
	if !ok {
		return Collection{}, core.ErrNotFound
	}

	updated := *c
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if err := s.confirm(func(r RemoteStore) error { return r.UpdateCollection(updated) }); err != nil {
		return Collection{}, err
	}

	*c = updated
	return updated, nil
}

// Delete removes the collection, every descendant collection, and every
// request they own. No orphans remain.
func (s *CollectionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cols[id]; !ok {
		return core.ErrNotFound
	}
	if err := s.confirm(func(r RemoteStore) error { return r.DeleteCollection(id) }); err != nil {
		return err
	}

	for _, cid := range s.subtree(id) {
		for _, rid := range s.colReqs[cid] {
			delete(s.reqs, rid)
		}
		delete(s.colReqs, cid)
		delete(s.children, cid)
		delete(s.expanded, cid)
		if s.selectedID == cid {
			s.selectedID = ""
		}
		parent := s.cols[cid].ParentID
		if cid == id {
			s.children[parent] = removeID(s.children[parent], cid)
			s.renumberCollections(parent)
		}
		delete(s.cols, cid)
	}
	return nil
}

// Move reparents a collection and renumbers both sibling lists. Moving a
// collection into its own subtree is rejected and changes nothing.
func (s *CollectionStore) Move(id, newParentID string, newOrder int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cols[id]
	if !ok {
		return core.ErrNotFound
	}
	if newParentID != "" {
		if _, ok := s.cols[newParentID]; !ok {
			return fmt.Errorf("target collection: %w", core.ErrNotFound)
		}
		// Ancestor walk over ids: if we reach the moved node, the move
		// would create a cycle.
		for cur := newParentID; cur != ""; cur = s.cols[cur].ParentID {
			if cur == id {
				return ErrInvalidMove
			}
		}
	}

	if err := s.confirm(func(r RemoteStore) error { return r.MoveCollection(id, newParentID, newOrder) }); err != nil {
		return err
	}

	oldParent := c.ParentID
	s.children[oldParent] = removeID(s.children[oldParent], id)
	s.children[newParentID] = insertID(s.children[newParentID], id, newOrder)
	c.ParentID = newParentID
	s.renumberCollections(oldParent)
	s.renumberCollections(newParentID)
	return nil
}

// CreateRequest appends a request to a collection.
func (s *CollectionStore) CreateRequest(collectionID string, data ApiRequest) (ApiRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cols[collectionID]; !ok {
		return ApiRequest{}, core.ErrNotFound
	}

	req := data
	req.ID = uuid.NewString()
	req.CollectionID = collectionID
	req.Order = len(s.colReqs[collectionID])
	if req.Method == "" {
		req.Method = "GET"
	}
	if err := s.confirm(func(r RemoteStore) error { return r.CreateRequest(req) }); err != nil {
		return ApiRequest{}, err
	}

	s.reqs[req.ID] = &req
	s.colReqs[collectionID] = append(s.colReqs[collectionID], req.ID)
	return req, nil
}

// RequestPatch updates only the fields that are set.
type RequestPatch struct {
	Name    *string
	Method  *string
	URL     *string
	Body    *string
	Headers map[string]string
	Params  map[string]string
	Auth    *core.AuthConfig
}

func (s *CollectionStore) UpdateRequest(id string, patch RequestPatch) (ApiRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.reqs[id]
	if !ok {
		return ApiRequest{}, core.ErrNotFound
	}

	updated := *req
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Method != nil {
		updated.Method = *patch.Method
	}
	if patch.URL != nil {
		updated.URL = *patch.URL
	}
	if patch.Body != nil {
		updated.Body = *patch.Body
	}
	if patch.Headers != nil {
		updated.Headers = patch.Headers
	}
	if patch.Params != nil {
		updated.Params = patch.Params
	}
	if patch.Auth != nil {
		updated.Auth = *patch.Auth
	}
	if err := s.confirm(func(r RemoteStore) error { return r.UpdateRequest(updated) }); err != nil {
		return ApiRequest{}, err
	}

	*req = updated
	return updated, nil
}

func (s *CollectionStore) DeleteRequest(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.reqs[id]
	if !ok {
		return core.ErrNotFound
	}
	if err := s.confirm(func(r RemoteStore) error { return r.DeleteRequest(id) }); err != nil {
		return err
	}

	s.colReqs[req.CollectionID] = removeID(s.colReqs[req.CollectionID], id)
	s.renumberRequests(req.CollectionID)
	delete(s.reqs, id)
	return nil
}

// MoveRequest reassigns ownership to another collection. A move never
// duplicates the request.
func (s *CollectionStore) MoveRequest(id, newCollectionID string, newOrder int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.reqs[id]
	if !ok {
		return core.ErrNotFound
	}
	if _, ok := s.cols[newCollectionID]; !ok {
		return fmt.Errorf("target collection: %w", core.ErrNotFound)
	}

	if err := s.confirm(func(r RemoteStore) error { return r.MoveRequest(id, newCollectionID, newOrder) }); err != nil {
		return err
	}

	old := req.CollectionID
	s.colReqs[old] = removeID(s.colReqs[old], id)
	s.colReqs[newCollectionID] = insertID(s.colReqs[newCollectionID], id, newOrder)
	req.CollectionID = newCollectionID
	s.renumberRequests(old)
	s.renumberRequests(newCollectionID)
	return nil
}

// DuplicateRequest copies a request under a new id. The copy lands in
// newCollectionID, or next to the original when empty. The original is
// untouched.
func (s *CollectionStore) DuplicateRequest(id, newCollectionID string) (ApiRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.reqs[id]
	if !ok {
		return ApiRequest{}, core.ErrNotFound
	}

	target := orig.CollectionID
	if newCollectionID != "" {
		if _, ok := s.cols[newCollectionID]; !ok {
			return ApiRequest{}, fmt.Errorf("target collection: %w", core.ErrNotFound)
		}
		target = newCollectionID
	}

	dup := *orig
	dup.ID = uuid.NewString()
	dup.Name = orig.Name + " copy"
	dup.CollectionID = target
	dup.Order = len(s.colReqs[target])
	dup.Headers = copyMap(orig.Headers)
	dup.Params = copyMap(orig.Params)

	if err := s.confirm(func(r RemoteStore) error { return r.CreateRequest(dup) }); err != nil {
		return ApiRequest{}, err
	}

	s.reqs[dup.ID] = &dup
	s.colReqs[target] = append(s.colReqs[target], dup.ID)
	return dup, nil
}

// Drop is the drag/drop entry point: itemType is "collection" or "request".
func (s *CollectionStore) Drop(itemType, id, targetID string, index int) error {
	switch itemType {
	case "collection":
		return s.Move(id, targetID, index)
	case "request":
		return s.MoveRequest(id, targetID, index)
	default:
		return fmt.Errorf("unknown drop type %q", itemType)
	}
}

// Search walks the tree in render order and collects case-insensitive
// substring matches over collection names, request names and request URLs.
// An empty query clears the stored results and touches nothing else.
func (s *CollectionStore) Search(query string) []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		s.results = nil
		return nil
	}

	var results []SearchResult
	var walk func(parentID string, path []string)
	walk = func(parentID string, path []string) {
		for _, cid := range s.children[parentID] {
			c := s.cols[cid]
			if containsFold(c.Name, query) {
				results = append(results, SearchResult{
					Type: "collection",
					ID:   c.ID,
					Name: c.Name,
					Path: joinPath(path),
				})
			}
			reqPath := append(append([]string(nil), path...), c.Name)
			for _, rid := range s.colReqs[cid] {
				req := s.reqs[rid]
				if containsFold(req.Name, query) || containsFold(req.URL, query) {
					results = append(results, SearchResult{
						Type: "request",
						ID:   req.ID,
						Name: req.Name,
						Path: joinPath(reqPath),
						URL:  req.URL,
					})
				}
			}
			walk(cid, reqPath)
		}
	}
	walk("", nil)

	s.results = results
	return results
}

// Results returns the latest search results.
func (s *CollectionStore) Results() []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SearchResult(nil), s.results...)
}

func (s *CollectionStore) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
}

func (s *CollectionStore) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *CollectionStore) ToggleExpanded(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[id] = !s.expanded[id]
}

func (s *CollectionStore) IsExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[id]
}

// Collection returns a copy of the collection.
func (s *CollectionStore) Collection(id string) (Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[id]
	if !ok {
		return Collection{}, false
	}
	return *c, true
}

// Request returns a copy of the request.
func (s *CollectionStore) Request(id string) (ApiRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[id]
	if !ok {
		return ApiRequest{}, false
	}
	return *req, true
}

// Roots returns the root collections in order.
func (s *CollectionStore) Roots() []Collection {
	return s.Children("")
}

// Children returns the ordered child collections of parentID.
func (s *CollectionStore) Children(parentID string) []Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Collection, 0, len(s.children[parentID]))
	for _, cid := range s.children[parentID] {
		out = append(out, *s.cols[cid])
	}
	return out
}

// Requests returns the ordered requests of a collection.
func (s *CollectionStore) Requests(collectionID string) []ApiRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ApiRequest, 0, len(s.colReqs[collectionID]))
	for _, rid := range s.colReqs[collectionID] {
		out = append(out, *s.reqs[rid])
	}
	return out
}

// confirm runs the remote confirmation; local-only stores always succeed.
func (s *CollectionStore) confirm(op func(RemoteStore) error) error {
	if s.remote == nil {
		return nil
	}
	if err := op(s.remote); err != nil {
		return fmt.Errorf("%w: %v", core.ErrOperationFailed, err)
	}
	return nil
}

// subtree returns id plus all descendant collection ids, parents first.
func (s *CollectionStore) subtree(id string) []string {
	out := []string{id}
	for i := 0; i < len(out); i++ {
		out = append(out, s.children[out[i]]...)
	}
	return out
}

func (s *CollectionStore) renumberCollections(parentID string) {
	for i, cid := range s.children[parentID] {
		s.cols[cid].Order = i
	}
}

func (s *CollectionStore) renumberRequests(collectionID string) {
	for i, rid := range s.colReqs[collectionID] {
		s.reqs[rid].Order = i
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertID(ids []string, id string, index int) []string {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func joinPath(parts []string) string {
	return strings.Join(parts, " / ")
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

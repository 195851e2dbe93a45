package workspace

import (
	"errors"
	"testing"

	"reqbridge/internal/core"
)

// fakeRemote confirms every mutation unless failing is set.
type fakeRemote struct {
	failing bool
	calls   int
}

func (f *fakeRemote) confirm() error {
	f.calls++
	if f.failing {
		return errors.New("remote unavailable")
	}
	return nil
}

func (f *fakeRemote) CreateCollection(Collection) error        { return f.confirm() }
func (f *fakeRemote) UpdateCollection(Collection) error        { return f.confirm() }
func (f *fakeRemote) DeleteCollection(string) error            { return f.confirm() }
func (f *fakeRemote) MoveCollection(string, string, int) error { return f.confirm() }
func (f *fakeRemote) CreateRequest(ApiRequest) error           { return f.confirm() }
func (f *fakeRemote) UpdateRequest(ApiRequest) error           { return f.confirm() }
func (f *fakeRemote) DeleteRequest(string) error               { return f.confirm() }
func (f *fakeRemote) MoveRequest(string, string, int) error    { return f.confirm() }

func mustCreate(t *testing.T, s *CollectionStore, name, parentID string) Collection {
	t.Helper()
	c, err := s.Create(name, parentID)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return c
}

func mustCreateRequest(t *testing.T, s *CollectionStore, collectionID string, req ApiRequest) ApiRequest {
	t.Helper()
	created, err := s.CreateRequest(collectionID, req)
	if err != nil {
		t.Fatalf("CreateRequest(%q): %v", req.Name, err)
	}
	return created
}

func TestDeleteCascades(t *testing.T) {
	s := NewCollectionStore(nil)

	root := mustCreate(t, s, "api", "")
	child := mustCreate(t, s, "users", root.ID)
	grandchild := mustCreate(t, s, "admin", child.ID)
	sibling := mustCreate(t, s, "other", "")

	r1 := mustCreateRequest(t, s, child.ID, ApiRequest{Name: "list users", URL: "https://x.test/users"})
	r2 := mustCreateRequest(t, s, grandchild.ID, ApiRequest{Name: "ban user", URL: "https://x.test/ban"})
	keep := mustCreateRequest(t, s, sibling.ID, ApiRequest{Name: "ping", URL: "https://x.test/ping"})

	if err := s.Delete(root.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		if _, ok := s.Collection(id); ok {
			t.Errorf("collection %s survived cascade", id)
		}
	}
	for _, id := range []string{r1.ID, r2.ID} {
		if _, ok := s.Request(id); ok {
			t.Errorf("request %s survived cascade", id)
		}
	}

	if _, ok := s.Request(keep.ID); !ok {
		t.Error("request outside the deleted subtree was removed")
	}
	roots := s.Roots()
	if len(roots) != 1 || roots[0].ID != sibling.ID {
		t.Fatalf("roots = %+v, want only %s", roots, sibling.ID)
	}
	if roots[0].Order != 0 {
		t.Errorf("surviving root order = %d, want 0", roots[0].Order)
	}
}

func TestMoveRejectsCycles(t *testing.T) {
	s := NewCollectionStore(nil)

	a := mustCreate(t, s, "a", "")
	b := mustCreate(t, s, "b", a.ID)
	c := mustCreate(t, s, "c", b.ID)

	if err := s.Move(a.ID, c.ID, 0); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("Move into descendant: err = %v, want ErrInvalidMove", err)
	}
	if err := s.Move(a.ID, a.ID, 0); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("Move into self: err = %v, want ErrInvalidMove", err)
	}

	// Tree unchanged
	got, _ := s.Collection(a.ID)
	if got.ParentID != "" {
		t.Errorf("a.ParentID = %q after rejected move, want root", got.ParentID)
	}
	if children := s.Children(b.ID); len(children) != 1 || children[0].ID != c.ID {
		t.Errorf("children(b) = %+v, want [c]", children)
	}
}

func TestMoveReparents(t *testing.T) {
	s := NewCollectionStore(nil)

	a := mustCreate(t, s, "a", "")
	b := mustCreate(t, s, "b", "")
	c1 := mustCreate(t, s, "c1", a.ID)
	c2 := mustCreate(t, s, "c2", a.ID)

	if err := s.Move(c1.ID, b.ID, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if children := s.Children(b.ID); len(children) != 1 || children[0].ID != c1.ID {
		t.Fatalf("children(b) = %+v, want [c1]", children)
	}
	remaining := s.Children(a.ID)
	if len(remaining) != 1 || remaining[0].ID != c2.ID {
		t.Fatalf("children(a) = %+v, want [c2]", remaining)
	}
	if remaining[0].Order != 0 {
		t.Errorf("c2.Order = %d after sibling left, want 0", remaining[0].Order)
	}
}

func TestDuplicateRequest(t *testing.T) {
	s := NewCollectionStore(nil)

	col := mustCreate(t, s, "api", "")
	orig := mustCreateRequest(t, s, col.ID, ApiRequest{
		Name:    "list",
		Method:  "POST",
		URL:     "https://x.test/list",
		Headers: map[string]string{"X-Trace": "1"},
		Body:    `{"page":1}`,
	})

	dup, err := s.DuplicateRequest(orig.ID, "")
	if err != nil {
		t.Fatalf("DuplicateRequest: %v", err)
	}

	if dup.ID == orig.ID {
		t.Fatal("duplicate shares the original id")
	}
	if dup.Name != "list copy" {
		t.Errorf("dup.Name = %q, want %q", dup.Name, "list copy")
	}
	if dup.Method != orig.Method || dup.URL != orig.URL || dup.Body != orig.Body {
		t.Errorf("dup fields diverge from original: %+v", dup)
	}
	if dup.Headers["X-Trace"] != "1" {
		t.Errorf("dup headers = %v", dup.Headers)
	}

	// Mutating the copy must not touch the original
	name := "renamed"
	if _, err := s.UpdateRequest(dup.ID, RequestPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}
	got, _ := s.Request(orig.ID)
	if got.Name != "list" {
		t.Errorf("original name = %q after editing the copy", got.Name)
	}

	if reqs := s.Requests(col.ID); len(reqs) != 2 {
		t.Fatalf("len(requests) = %d, want 2", len(reqs))
	}
}

func TestSearchFindsNestedByURL(t *testing.T) {
	s := NewCollectionStore(nil)

	root := mustCreate(t, s, "services", "")
	child := mustCreate(t, s, "billing", root.ID)
	mustCreateRequest(t, s, child.ID, ApiRequest{Name: "create invoice", URL: "https://billing.test/invoices"})
	mustCreateRequest(t, s, child.ID, ApiRequest{Name: "unrelated", URL: "https://other.test/x"})

	results := s.Search("INVOICE")
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	got := results[0]
	if got.Type != "request" || got.Name != "create invoice" {
		t.Errorf("result = %+v", got)
	}
	if got.Path != "services / billing" {
		t.Errorf("result path = %q, want %q", got.Path, "services / billing")
	}

	// Collection matches carry the path to their parent
	colResults := s.Search("billing")
	foundCol := false
	for _, r := range colResults {
		if r.Type == "collection" && r.ID == child.ID {
			foundCol = true
			if r.Path != "services" {
				t.Errorf("collection path = %q, want %q", r.Path, "services")
			}
		}
	}
	if !foundCol {
		t.Error("collection match missing from results")
	}

	// Empty query clears stored results
	if got := s.Search(""); got != nil {
		t.Errorf("Search(\"\") = %+v, want nil", got)
	}
	if got := s.Results(); len(got) != 0 {
		t.Errorf("Results() after clear = %+v", got)
	}
}

func TestFailedRemoteLeavesTreeUnchanged(t *testing.T) {
	remote := &fakeRemote{}
	s := NewCollectionStore(remote)

	col := mustCreate(t, s, "api", "")
	req := mustCreateRequest(t, s, col.ID, ApiRequest{Name: "ping", URL: "https://x.test/ping"})

	remote.failing = true

	if _, err := s.Create("new", ""); !errors.Is(err, core.ErrOperationFailed) {
		t.Fatalf("Create err = %v, want ErrOperationFailed", err)
	}
	if err := s.Delete(col.ID); !errors.Is(err, core.ErrOperationFailed) {
		t.Fatalf("Delete err = %v, want ErrOperationFailed", err)
	}
	name := "renamed"
	if _, err := s.UpdateRequest(req.ID, RequestPatch{Name: &name}); !errors.Is(err, core.ErrOperationFailed) {
		t.Fatalf("UpdateRequest err = %v, want ErrOperationFailed", err)
	}

	if roots := s.Roots(); len(roots) != 1 || roots[0].ID != col.ID {
		t.Fatalf("roots changed after failed mutations: %+v", roots)
	}
	got, ok := s.Request(req.ID)
	if !ok || got.Name != "ping" {
		t.Fatalf("request changed after failed mutation: %+v", got)
	}
}

func TestDropDispatch(t *testing.T) {
	s := NewCollectionStore(nil)

	a := mustCreate(t, s, "a", "")
	b := mustCreate(t, s, "b", "")
	req := mustCreateRequest(t, s, a.ID, ApiRequest{Name: "r", URL: "https://x.test"})

	if err := s.Drop("request", req.ID, b.ID, 0); err != nil {
		t.Fatalf("Drop request: %v", err)
	}
	got, _ := s.Request(req.ID)
	if got.CollectionID != b.ID {
		t.Errorf("request collection = %s, want %s", got.CollectionID, b.ID)
	}

	if err := s.Drop("collection", a.ID, b.ID, 0); err != nil {
		t.Fatalf("Drop collection: %v", err)
	}
	gotCol, _ := s.Collection(a.ID)
	if gotCol.ParentID != b.ID {
		t.Errorf("collection parent = %s, want %s", gotCol.ParentID, b.ID)
	}

	if err := s.Drop("widget", a.ID, b.ID, 0); err == nil {
		t.Error("Drop with unknown type succeeded")
	}
}

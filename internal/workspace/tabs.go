package workspace

import (
	"sync"

	"github.com/google/uuid"

	"reqbridge/internal/core"
)

// Response is a tab's transient response slot. Proxy failures land here as
// synthetic responses with Error set.
type Response struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Data       string
	DurationMs int64
	Error      bool
	Message    string
}

// clone returns an independent copy, headers included.
func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = copyMap(r.Headers)
	return &out
}

// Tab is one open request editor. A tab bound to a saved request holds its
// id; at most one open tab may reference any given request id.
type Tab struct {
	ID           string
	Name         string
	URL          string
	Method       string
	Params       map[string]string
	Headers      map[string]string
	Body         string
	Auth         core.AuthConfig
	IsSaved      bool
	IsModified   bool
	RequestID    string
	CollectionID string
	Response     *Response
}

// TabManager owns the ordered set of open tabs and the active tab. There is
// no cap on open tabs; closing is free and purely local.
type TabManager struct {
	mu       sync.Mutex
	tabs     []*Tab
	activeID string
}

func NewTabManager() *TabManager {
	return &TabManager{}
}

// Open opens a tab for a saved request. If a tab already references the
// request it is activated instead of duplicated.
func (m *TabManager) Open(req ApiRequest) Tab {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tabs {
		if t.RequestID == req.ID {
			m.activeID = t.ID
			return *t
		}
	}

	t := &Tab{
		ID:           uuid.NewString(),
		Name:         req.Name,
		URL:          req.URL,
		Method:       req.Method,
		Params:       copyMap(req.Params),
		Headers:      copyMap(req.Headers),
		Body:         req.Body,
		Auth:         req.Auth,
		IsSaved:      true,
		RequestID:    req.ID,
		CollectionID: req.CollectionID,
	}
	m.tabs = append(m.tabs, t)
	m.activeID = t.ID
	return *t
}

// OpenBlank opens an untitled draft tab.
func (m *TabManager) OpenBlank() Tab {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &Tab{
		ID:      uuid.NewString(),
		Name:    "Untitled",
		Method:  "GET",
		Params:  map[string]string{},
		Headers: map[string]string{},
		Auth:    core.AuthConfig{Type: core.AuthNone},
	}
	m.tabs = append(m.tabs, t)
	m.activeID = t.ID
	return *t
}

// TabPatch updates only the fields that are set.
type TabPatch struct {
	Name    *string
	URL     *string
	Method  *string
	Body    *string
	Params  map[string]string
	Headers map[string]string
	Auth    *core.AuthConfig
}

// Update merges the patch into the tab and marks it dirty.
func (m *TabManager) Update(tabID string, patch TabPatch) (Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.find(tabID)
	if t == nil {
		return Tab{}, core.ErrNotFound
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.URL != nil {
		t.URL = *patch.URL
	}
	if patch.Method != nil {
		t.Method = *patch.Method
	}
	if patch.Body != nil {
		t.Body = *patch.Body
	}
	if patch.Params != nil {
		t.Params = patch.Params
	}
	if patch.Headers != nil {
		t.Headers = patch.Headers
	}
	if patch.Auth != nil {
		t.Auth = *patch.Auth
	}
	t.IsModified = true
	return *t, nil
}

// MarkSaved records a successful save: bookkeeping only, the tab does not
// become dirty. Binds the tab to its saved request id; any other tab still
// bound to that id is closed so a request is never open twice.
func (m *TabManager) MarkSaved(tabID, requestID, collectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.find(tabID)
	if t == nil {
		return core.ErrNotFound
	}
	if requestID != "" {
		for _, other := range m.tabs {
			if other.ID != tabID && other.RequestID == requestID {
				m.close(other.ID)
				break
			}
		}
		t.RequestID = requestID
	}
	t.IsSaved = true
	t.IsModified = false
	if collectionID != "" {
		t.CollectionID = collectionID
	}
	return nil
}

// SetResponse stores the execution outcome in the tab's response slot.
func (m *TabManager) SetResponse(tabID string, resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.find(tabID); t != nil {
		t.Response = resp
	}
}

// Close closes the tab. Closing is allowed from any state.
func (m *TabManager) Close(tabID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.close(tabID)
}

// CloseOthers closes every tab except tabID.
func (m *TabManager) CloseOthers(tabID string) {
	m.closeWhere(func(i int, t *Tab) bool { return t.ID != tabID })
}

// CloseToLeft closes every tab left of tabID.
func (m *TabManager) CloseToLeft(tabID string) {
	idx := m.indexOf(tabID)
	if idx < 0 {
		return
	}
	m.closeWhere(func(i int, t *Tab) bool { return i < idx })
}

// CloseToRight closes every tab right of tabID.
func (m *TabManager) CloseToRight(tabID string) {
	idx := m.indexOf(tabID)
	if idx < 0 {
		return
	}
	m.closeWhere(func(i int, t *Tab) bool { return i > idx })
}

// CloseAllSaved closes tabs that are saved and unmodified.
func (m *TabManager) CloseAllSaved() {
	m.closeWhere(func(i int, t *Tab) bool { return t.IsSaved && !t.IsModified })
}

// Activate makes tabID the active tab.
func (m *TabManager) Activate(tabID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(tabID) != nil {
		m.activeID = tabID
	}
}

// ActiveID returns the id of the active tab, or "".
func (m *TabManager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Get returns a copy of the tab.
func (m *TabManager) Get(tabID string) (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.find(tabID)
	if t == nil {
		return Tab{}, false
	}
	cp := *t
	cp.Response = t.Response.clone()
	return cp, true
}

// Tabs returns copies of the open tabs in order.
func (m *TabManager) Tabs() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = *t
		out[i].Response = t.Response.clone()
	}
	return out
}

func (m *TabManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

// closeWhere applies the single close primitive to a precomputed subset, so
// bulk operations share close semantics exactly.
func (m *TabManager) closeWhere(match func(int, *Tab) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for i, t := range m.tabs {
		if match(i, t) {
			ids = append(ids, t.ID)
		}
	}
	for _, id := range ids {
		m.close(id)
	}
}

// close removes the tab; called with the lock held.
func (m *TabManager) close(tabID string) {
	for i, t := range m.tabs {
		if t.ID == tabID {
			m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
			if m.activeID == tabID {
				m.activeID = ""
				if len(m.tabs) > 0 {
					// Activate the nearest remaining tab
					if i >= len(m.tabs) {
						i = len(m.tabs) - 1
					}
					m.activeID = m.tabs[i].ID
				}
			}
			return
		}
	}
}

func (m *TabManager) find(tabID string) *Tab {
	for _, t := range m.tabs {
		if t.ID == tabID {
			return t
		}
	}
	return nil
}

func (m *TabManager) indexOf(tabID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tabs {
		if t.ID == tabID {
			return i
		}
	}
	return -1
}

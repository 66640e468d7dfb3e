package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/identity"
	"github.com/whynot-innovations/portal/internal/metrics"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory implementations of the repository and identity
// interfaces. Each one stores copies so tests cannot reach into its state
// by accident, and each has an err field to simulate a failing backend.

// Tokens understood by fakeVerifier.
const (
	adminToken  = "token-admin"
	admin2Token = "token-admin-2"
	userToken   = "token-user"
	user2Token  = "token-user-2"
)

type fakeVerifier struct {
	identities map[string]*identity.Identity
	err        error // returned for every call when set
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{identities: map[string]*identity.Identity{
		adminToken:  {UID: "admin-1", Email: "admin1@example.com"},
		admin2Token: {UID: "admin-2", Email: "admin2@example.com"},
		userToken:   {UID: "user-1", Email: "user1@example.com"},
		user2Token:  {UID: "user-2", Email: "user2@example.com"},
	}}
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.identities[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", identity.ErrInvalidToken)
	}
	cp := *id
	return &cp, nil
}

type fakePrivileges struct {
	mu     sync.Mutex
	admins map[string]model.Admin
	err    error
}

func newFakePrivileges(uids ...string) *fakePrivileges {
	f := &fakePrivileges{admins: map[string]model.Admin{}}
	for _, uid := range uids {
		f.admins[uid] = model.Admin{UserID: uid}
	}
	return f
}

func (f *fakePrivileges) AdminExists(_ context.Context, uid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.admins[uid]
	return ok, nil
}

func (f *fakePrivileges) GrantAdmin(_ context.Context, a *model.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[a.UserID] = *a
	return nil
}

func (f *fakePrivileges) RevokeAdmin(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.admins[uid]; !ok {
		return apperror.NotFound("admin", uid)
	}
	delete(f.admins, uid)
	return nil
}

func (f *fakePrivileges) ListAdmins(context.Context) ([]model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Admin, 0, len(f.admins))
	for _, a := range f.admins {
		out = append(out, a)
	}
	return out, nil
}

type fakeInnovations struct {
	items  []*model.Innovation // insertion order
	nextID int
}

var _ repository.InnovationRepository = (*fakeInnovations)(nil)

func (f *fakeInnovations) CreateInnovation(_ context.Context, in *model.Innovation) error {
	f.nextID++
	in.ID = fmt.Sprintf("inn-%d", f.nextID)
	cp := *in
	cp.Tags = slices.Clone(in.Tags)
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeInnovations) GetInnovation(_ context.Context, id string) (*model.Innovation, error) {
	for _, in := range f.items {
		if in.ID == id {
			cp := *in
			cp.Tags = slices.Clone(in.Tags)
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("innovation", id)
}

func (f *fakeInnovations) ListInnovations(context.Context) ([]model.Innovation, error) {
	out := make([]model.Innovation, 0, len(f.items))
	for i := len(f.items) - 1; i >= 0; i-- {
		out = append(out, *f.items[i])
	}
	return out, nil
}

func (f *fakeInnovations) UpdateInnovation(_ context.Context, in *model.Innovation) error {
	for i, existing := range f.items {
		if existing.ID == in.ID {
			cp := *in
			cp.Tags = slices.Clone(in.Tags)
			f.items[i] = &cp
			return nil
		}
	}
	return apperror.NotFound("innovation", in.ID)
}

func (f *fakeInnovations) DeleteInnovation(_ context.Context, id string) error {
	for i, in := range f.items {
		if in.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("innovation", id)
}

type fakeMessages struct {
	items  []*model.Message
	nextID int
}

var _ repository.MessageRepository = (*fakeMessages)(nil)

func (f *fakeMessages) CreateMessage(_ context.Context, m *model.Message) error {
	f.nextID++
	m.ID = fmt.Sprintf("msg-%d", f.nextID)
	cp := *m
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeMessages) GetMessage(_ context.Context, id string) (*model.Message, error) {
	for _, m := range f.items {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("message", id)
}

func (f *fakeMessages) ListMessages(_ context.Context, q repository.MessageQuery) ([]model.Message, error) {
	out := []model.Message{}
	for i := len(f.items) - 1; i >= 0; i-- {
		m := f.items[i]
		if q.CreatedBy != "" && m.CreatedBy != q.CreatedBy {
			continue
		}
		if q.Type != "" && m.Type != q.Type {
			continue
		}
		if q.UnreadOnly && m.Read {
			continue
		}
		if !q.IncludeArchived && m.Archived {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeMessages) SetMessageRead(_ context.Context, id string, read bool) error {
	for _, m := range f.items {
		if m.ID == id {
			m.Read = read
			return nil
		}
	}
	return apperror.NotFound("message", id)
}

func (f *fakeMessages) SetMessageArchived(_ context.Context, id string, archived bool) error {
	for _, m := range f.items {
		if m.ID == id {
			m.Archived = archived
			return nil
		}
	}
	return apperror.NotFound("message", id)
}

type fakeDirectory struct {
	accounts map[string]model.Account
	nextID   int
	deleted  []string
}

var _ identity.Directory = (*fakeDirectory)(nil)

func newFakeDirectory(uids ...string) *fakeDirectory {
	f := &fakeDirectory{accounts: map[string]model.Account{}}
	for _, uid := range uids {
		f.accounts[uid] = model.Account{UID: uid, Email: uid + "@example.com"}
	}
	return f
}

func (f *fakeDirectory) CreateAccount(_ context.Context, email, _ string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return nil, apperror.Conflict("account", "email already exists")
		}
	}
	f.nextID++
	a := model.Account{UID: fmt.Sprintf("new-%d", f.nextID), Email: email, CreatedAt: time.Now()}
	f.accounts[a.UID] = a
	return &a, nil
}

func (f *fakeDirectory) DeleteAccount(_ context.Context, uid string) error {
	if _, ok := f.accounts[uid]; !ok {
		return apperror.NotFound("account", uid)
	}
	delete(f.accounts, uid)
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeDirectory) ListAccounts(context.Context) ([]model.Account, error) {
	out := make([]model.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b model.Account) int {
		if a.UID < b.UID {
			return -1
		}
		if a.UID > b.UID {
			return 1
		}
		return 0
	})
	return out, nil
}

// fakeRecorder counts metric calls.
type fakeRecorder struct {
	mu               sync.Mutex
	decisions        map[string]int
	privilegeLookups int
}

var _ metrics.Recorder = (*fakeRecorder)(nil)

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{decisions: map[string]int{}}
}

func (r *fakeRecorder) RecordAuthzDecision(d string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[d]++
}

func (r *fakeRecorder) RecordPrivilegeLookupError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.privilegeLookups++
}

func (r *fakeRecorder) RecordSignIn(bool)        {}
func (r *fakeRecorder) RecordRateLimited(string) {}

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDeps wires the fakes together. admin-1 and admin-2 are privileged.
type testDeps struct {
	verifier    *fakeVerifier
	privileges  *fakePrivileges
	innovations *fakeInnovations
	messages    *fakeMessages
	directory   *fakeDirectory
	recorder    *fakeRecorder
	resolver    *Resolver
	guard       *Guard
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		verifier:    newFakeVerifier(),
		privileges:  newFakePrivileges("admin-1", "admin-2"),
		innovations: &fakeInnovations{},
		messages:    &fakeMessages{},
		directory:   newFakeDirectory("admin-1", "admin-2", "user-1", "user-2"),
		recorder:    newFakeRecorder(),
	}
	d.resolver = NewResolver(d.privileges, d.recorder, testLogger())
	d.guard = NewGuard(d.verifier, d.resolver, d.recorder, testLogger())
	return d
}

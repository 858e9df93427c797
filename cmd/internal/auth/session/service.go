package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"methodius/cmd/security/token"
)

// Store owns the process-wide operator session.
//
// All mutation goes through Login, Logout, CheckAuth and the background
// profile lookup. Each of Login, Logout and CheckAuth bumps a generation
// counter; a lookup started under an older generation drops its result,
// whether it succeeded or failed.
type Store struct {
	cfg     Config
	dir     Directory
	storage Storage
	log     *slog.Logger

	// commitMu orders persisted-credential writes with the generation bump
	// that publishes them. mu guards the in-memory fields below.
	commitMu sync.Mutex

	mu             sync.RWMutex
	state          State
	token          string
	account        *Account
	profile        *Profile
	profilePending bool
	gen            uint64

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64

	resolved     chan struct{}
	resolvedOnce sync.Once

	// ctx bounds background profile lookups; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Store and loads the persisted token. The session starts
// Unresolved; call CheckAuth once to settle it.
//
// A storage read failure is logged and treated as "no token".
func New(cfg Config, dir Directory, storage Storage, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	if cfg.RequestTimeout <= 0 || cfg.ProfileTimeout <= 0 {
		def := DefaultConfig()
		if cfg.RequestTimeout <= 0 {
			cfg.RequestTimeout = def.RequestTimeout
		}
		if cfg.ProfileTimeout <= 0 {
			cfg.ProfileTimeout = def.ProfileTimeout
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		cfg:      cfg,
		dir:      dir,
		storage:  storage,
		log:      log,
		state:    StateUnresolved,
		subs:     make(map[uint64]chan Snapshot),
		resolved: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.token = s.persistedToken()
	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:          s.state,
		Token:          s.token,
		Account:        cloneAccount(s.account),
		Profile:        cloneProfile(s.profile),
		ProfilePending: s.profilePending,
	}
}

// IsPrivileged reports whether the current account has no linked profile.
func (s *Store) IsPrivileged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account != nil && s.profile == nil
}

// Resolved is closed once the session leaves the resolving window for the
// first time (CheckAuth settled, or an explicit Login/Logout happened).
func (s *Store) Resolved() <-chan struct{} {
	return s.resolved
}

// Login adopts token and account after a successful backend authentication.
//
// The token and the account document id are persisted, then token and account
// are set synchronously. The linked profile is fetched in the background; until
// it lands the snapshot reports ProfilePending. If persisting fails the
// in-memory session is left untouched and the error is returned.
func (s *Store) Login(ctx context.Context, tok string, account Account) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrEmptyToken
	}
	if strings.TrimSpace(account.DocumentID) == "" {
		return ErrInvalidAccount
	}

	s.commitMu.Lock()
	if err := s.storage.Set(KeyToken, tok); err != nil {
		s.commitMu.Unlock()
		return err
	}
	if err := s.storage.Set(KeyAccountID, account.DocumentID); err != nil {
		_ = s.storage.Delete(KeyToken)
		s.commitMu.Unlock()
		return err
	}

	acc := account
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateAuthenticated
	s.token = tok
	s.account = &acc
	s.profile = nil
	s.profilePending = true
	s.mu.Unlock()
	s.commitMu.Unlock()

	s.markResolved()
	s.notify()

	s.log.InfoContext(ctx, "session.login",
		"account_id", account.ID,
		"username", account.Username,
		"token_fp", token.Fingerprint(tok),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetchLinkedProfile(s.ctx, gen, tok, account.DocumentID)
	}()
	return nil
}

// Logout clears persisted credentials and the in-memory session.
// It never fails and is idempotent.
func (s *Store) Logout(ctx context.Context) {
	s.endSession(ctx, 0, false)
}

// endSession empties the session. With onlyGen set it does nothing unless the
// session is still at generation gen, and reports whether it cleared.
func (s *Store) endSession(ctx context.Context, gen uint64, onlyGen bool) bool {
	s.commitMu.Lock()
	if onlyGen {
		s.mu.RLock()
		current := s.gen == gen
		s.mu.RUnlock()
		if !current {
			s.commitMu.Unlock()
			return false
		}
	}
	for _, k := range []string{KeyToken, KeyAccountID} {
		if err := s.storage.Delete(k); err != nil {
			s.log.WarnContext(ctx, "session.logout.storage_fail", "key", k, "err", err)
		}
	}

	s.mu.Lock()
	s.gen++
	hadAccount := s.account != nil
	s.state = StateUnauthenticated
	s.token = ""
	s.account = nil
	s.profile = nil
	s.profilePending = false
	s.mu.Unlock()
	s.commitMu.Unlock()

	s.markResolved()
	s.notify()

	if hadAccount {
		s.log.InfoContext(ctx, "session.logout")
	}
	return true
}

// CheckAuth re-validates the persisted token against the backend.
//
// No token leaves the session empty. A failed "who am I" lookup (non-2xx,
// network error, timeout, or an account without a document id) is equivalent
// to Logout. On success the account is adopted and the linked profile lookup
// is awaited before the session leaves the resolving window. If Login or
// Logout ran while the lookup was in flight, its outcome is dropped. It
// returns the settled snapshot.
func (s *Store) CheckAuth(ctx context.Context) Snapshot {
	s.commitMu.Lock()
	stored := s.persistedToken()
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateResolving
	s.token = stored
	s.account = nil
	s.profile = nil
	s.profilePending = false
	s.mu.Unlock()
	s.commitMu.Unlock()
	s.notify()

	if stored == "" {
		s.mu.Lock()
		if s.gen == gen {
			s.state = StateUnauthenticated
			s.token = ""
		}
		s.mu.Unlock()
		s.markResolved()
		s.notify()
		s.log.InfoContext(ctx, "session.check.empty")
		return s.Snapshot()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	account, err := s.dir.Me(lookupCtx, stored)
	cancel()
	if err == nil && strings.TrimSpace(account.DocumentID) == "" {
		err = ErrInvalidAccount
	}
	if err != nil {
		if !s.endSession(ctx, gen, true) {
			s.log.InfoContext(ctx, "session.check.stale", "token_fp", token.Fingerprint(stored), "err", err)
			return s.Snapshot()
		}
		s.log.WarnContext(ctx, "session.check.fail", "token_fp", token.Fingerprint(stored), "err", err)
		return s.Snapshot()
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.InfoContext(ctx, "session.check.stale", "token_fp", token.Fingerprint(stored))
		return s.Snapshot()
	}
	acc := account
	s.account = &acc
	s.profilePending = true
	s.mu.Unlock()
	s.notify()

	s.fetchLinkedProfile(ctx, gen, stored, account.DocumentID)

	s.mu.Lock()
	if s.gen == gen {
		s.state = StateAuthenticated
	}
	s.mu.Unlock()
	s.markResolved()
	s.notify()

	snap := s.Snapshot()
	s.log.InfoContext(ctx, "session.check.ok",
		"account_id", account.ID,
		"username", account.Username,
		"privileged", snap.IsPrivileged(),
	)
	return snap
}

// fetchLinkedProfile looks up the employee linked to accountDocumentID and
// stores the first match. Failures are logged and leave the profile nil.
// The result is dropped when the session generation moved on meanwhile.
func (s *Store) fetchLinkedProfile(ctx context.Context, gen uint64, tok, accountDocumentID string) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.ProfileTimeout)
	profile, err := s.dir.FindProfile(lookupCtx, tok, accountDocumentID)
	cancel()

	s.mu.Lock()
	if s.gen != gen || s.account == nil {
		s.mu.Unlock()
		s.log.DebugContext(ctx, "session.profile.stale", "account_document_id", accountDocumentID)
		return
	}
	s.profilePending = false
	if err != nil {
		s.profile = nil
	} else {
		s.profile = cloneProfile(profile)
	}
	s.mu.Unlock()
	s.notify()

	switch {
	case err != nil:
		s.log.WarnContext(ctx, "session.profile.fail", "account_document_id", accountDocumentID, "err", err)
	case profile == nil:
		s.log.DebugContext(ctx, "session.profile.none", "account_document_id", accountDocumentID)
	default:
		s.log.DebugContext(ctx, "session.profile.ok", "account_document_id", accountDocumentID, "profile_id", profile.ID)
	}
}

// Subscribe returns a channel receiving the latest snapshot after every change.
// Slow receivers only ever see the newest snapshot. The cancel func must be
// called to release the subscription.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Close cancels background lookups and waits for them to return.
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Store) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the stale pending snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Store) markResolved() {
	s.resolvedOnce.Do(func() { close(s.resolved) })
}

func (s *Store) persistedToken() string {
	v, ok, err := s.storage.Get(KeyToken)
	if err != nil {
		s.log.Warn("session.storage.read_fail", "key", KeyToken, "err", err)
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

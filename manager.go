package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Manager orchestrates account registration, confirmation and password
// reset over a Repository.
type Manager struct {
	repo      Repository
	hasher    PasswordHasher
	validator *Validator
	tokens    TokenGenerator
	machine   *AccountStateMachine
	activity  ActivitySink
	logger    Logger
	now       func() time.Time
	config    Config

	notifier      Notifier
	syncNotify    bool
	notifications *dispatcher
}

// Option customizes a Manager
type Option func(*Manager)

// WithHasher overrides the bcrypt hasher
func WithHasher(hasher PasswordHasher) Option {
	return func(m *Manager) {
		m.hasher = hasher
	}
}

// WithNotifier sets the notification transport. Without one notifications
// are logged and dropped.
func WithNotifier(notifier Notifier) Option {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// WithValidator overrides the default validator
func WithValidator(validator *Validator) Option {
	return func(m *Manager) {
		m.validator = validator
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish lifecycle events.
func WithActivitySink(sink ActivitySink) Option {
	return func(m *Manager) {
		m.activity = normalizeActivitySink(sink)
	}
}

// WithTokenGenerator overrides how confirmation codes and reset tokens are made
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(m *Manager) {
		m.tokens = gen
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithConfig sets the Manager configuration
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// WithSyncNotifications sends notifications inline instead of in the background.
// Delivery failures are still only logged.
func WithSyncNotifications() Option {
	return func(m *Manager) {
		m.syncNotify = true
	}
}

// NewManager returns a Manager backed by repo
func NewManager(repo Repository, opts ...Option) *Manager {
	if repo == nil {
		panic("accounts: NewManager requires a Repository")
	}

	m := &Manager{
		repo:     repo,
		machine:  NewAccountStateMachine(),
		activity: discardActivity{},
		logger:   defLogger{},
		now:      time.Now,
		config:   DefaultConfig(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.config = m.config.normalized()

	if m.hasher == nil {
		m.hasher = NewBcryptHasher(m.config.HashCost)
	}

	if m.validator == nil {
		m.validator = NewValidator(repo, WithPasswordPolicy(m.config.PasswordPolicy))
	}

	if m.tokens == nil {
		m.tokens = tokenGeneratorWithSize(m.config.TokenBytes)
	}

	m.notifications = &dispatcher{
		notifier: m.notifier,
		logger:   m.logger,
		timeout:  m.config.NotificationTimeout,
		sync:     m.syncNotify,
	}

	return m
}

// Config returns the normalized configuration in use
func (m *Manager) Config() Config {
	return m.config
}

// Wait blocks until all in flight notifications are done
func (m *Manager) Wait() {
	m.notifications.wait()
}

// Save validates, hashes and persists account.
//
// New accounts whose username or email is already taken fail with a
// Duplicated error before any validation or hashing, as do new accounts whose
// credentials are taken while they are being validated. When no rules are given
// the create rules apply, relaxed for existing accounts whose password did
// not change. On any error the account is left as it was passed in.
func (m *Manager) Save(ctx context.Context, account *Account, rules ...RuleSet) (*Account, error) {
	if account == nil {
		return nil, goerrors.New("account is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	isNew := account.IsNew()

	if isNew {
		duplicated, err := m.repo.Exists(ctx, IdentityQuery{
			Username: account.Username,
			Email:    account.Email,
		})
		if err != nil {
			return nil, PersistenceError(err, "failed to check for existing credentials")
		}
		if duplicated {
			m.logger.Debug("registration rejected, credentials in use: username=%s email=%s", account.Username, account.Email)
			return nil, DuplicatedError(map[string]any{
				"username": account.Username,
				"email":    account.Email,
			})
		}
	}

	ruleSet := m.effectiveRules(account, rules)

	violations, err := m.validator.Validate(ctx, account, ruleSet)
	if err != nil {
		return nil, PersistenceError(err, "failed to validate account")
	}
	if isNew && len(violations.Taken()) > 0 {
		// taken between the existence check and validation
		m.logger.Debug("registration rejected, credentials taken during validation: %s", strings.Join(violations.Taken(), ", "))
		return nil, DuplicatedError(map[string]any{
			"username": account.Username,
			"email":    account.Email,
		})
	}
	if !violations.Empty() {
		m.logger.Debug("account validation failed (%s): %s", ruleSet.Name, violations.String())
		return nil, InvalidError(violations)
	}

	snapshot := *account

	if err := m.beforeSave(account, isNew); err != nil {
		*account = snapshot
		return nil, err
	}

	if err := m.repo.Persist(ctx, account); err != nil {
		*account = snapshot
		if IsUniqueViolation(err) {
			return nil, DuplicatedError(map[string]any{
				"username": account.Username,
				"email":    account.Email,
			})
		}
		return nil, PersistenceError(err, "failed to persist account")
	}

	account.clearTransient()
	account.MarkLoaded()

	m.afterSave(ctx, account, isNew)

	return account, nil
}

func (m *Manager) effectiveRules(account *Account, rules []RuleSet) RuleSet {
	if len(rules) > 0 {
		return rules[0]
	}
	if !account.IsNew() && !account.PasswordChanged() {
		return RulesCreate.WithPreservedPassword()
	}
	return RulesCreate
}

func (m *Manager) beforeSave(account *Account, isNew bool) error {
	now := m.now()

	if isNew {
		code, err := m.tokens()
		if err != nil {
			return internalError(err, "failed to generate confirmation code")
		}
		account.ConfirmationCode = code
		account.ResetToken = ""
		account.ResetTokenIssuedAt = nil
		account.CreatedAt = &now
	}
	account.UpdatedAt = &now
	account.PasswordConfirmation = ""

	if account.Password != "" {
		hash, err := m.hasher.HashPassword(account.Password)
		if err != nil {
			return internalError(err, "failed to hash password")
		}
		account.PasswordHash = hash
	}

	return nil
}

func (m *Manager) afterSave(ctx context.Context, account *Account, isNew bool) {
	event := ActivityEventAccountUpdated
	if isNew {
		event = ActivityEventAccountRegistered
		m.logger.Info("account registered: %s", account.ID)
	}

	if !account.Confirmed {
		m.notifications.dispatch(ctx, TemplateAccountConfirmation, Notification{
			AccountID: account.ID.String(),
			To:        account.Email,
			Username:  account.Username,
			Data: map[string]any{
				"confirmation_code": account.ConfirmationCode,
			},
		})
	}

	m.recordActivity(ctx, accountEvent(event, account))
}

// Confirm marks account as confirmed and invalidates its confirmation code.
// Confirming an already confirmed account is a no-op.
func (m *Manager) Confirm(ctx context.Context, account *Account) error {
	if account.IsNew() {
		return goerrors.New("account must be persisted before confirmation", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	changed, err := m.machine.ConfirmationTransition(account, StateConfirmed)
	if err != nil {
		return err
	}
	if !changed {
		m.logger.Debug("account %s already confirmed", account.ID)
		return nil
	}

	snapshot := *account
	now := m.now()

	account.Confirmed = true
	account.ConfirmedAt = &now
	account.ConfirmationCode = ""
	account.UpdatedAt = &now

	if err := m.repo.Persist(ctx, account); err != nil {
		*account = snapshot
		return PersistenceError(err, "failed to persist account confirmation")
	}

	m.recordActivity(ctx, accountEvent(ActivityEventAccountConfirmed, account).
		transition(string(StateUnconfirmed), string(StateConfirmed)))

	return nil
}

// ConfirmByCode looks up the account owning code and confirms it
func (m *Manager) ConfirmByCode(ctx context.Context, code string) (*Account, error) {
	const kind = "confirmation code"

	if code == "" {
		return nil, tokenInvalidError(kind)
	}

	account, err := m.repo.FindByConfirmationCode(ctx, code)
	if err != nil {
		if IsNotFound(err) {
			return nil, tokenInvalidError(kind)
		}
		return nil, PersistenceError(err, "failed to retrieve account by confirmation code")
	}

	if account.ConfirmationCodeExpired(m.config.ConfirmationCodeTTL, m.now()) {
		return nil, tokenExpiredError(kind)
	}

	if err := m.Confirm(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// ForgotPassword issues a reset token for account, stores it and sends it to
// the account email. Any previously issued token is replaced.
func (m *Manager) ForgotPassword(ctx context.Context, account *Account) (string, error) {
	if account.IsNew() {
		return "", goerrors.New("account must be persisted before requesting a password reset", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := m.machine.ResetTokenTransition(account, StateTokenIssued); err != nil {
		return "", err
	}

	from := account.ResetTokenState()

	token, err := m.tokens()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	issuedAt := m.now()
	if err := m.repo.StoreResetToken(ctx, account, token, issuedAt); err != nil {
		return "", PersistenceError(err, "failed to store reset token")
	}

	account.ResetToken = token
	account.ResetTokenIssuedAt = &issuedAt

	data := map[string]any{
		"reset_token": token,
	}
	if expires, ok := ExpiresAt(issuedAt, m.config.ResetTokenTTL); ok {
		data["expires_at"] = expires
	}

	m.notifications.dispatch(ctx, TemplatePasswordReset, Notification{
		AccountID: account.ID.String(),
		To:        account.Email,
		Username:  account.Username,
		Data:      data,
	})

	m.recordActivity(ctx, accountEvent(ActivityEventPasswordResetRequested, account).
		transition(string(from), string(StateTokenIssued)))

	return token, nil
}

// ResetPassword sets a new password on account and clears its reset token in
// a single write. Nothing is touched when the confirmation differs.
func (m *Manager) ResetPassword(ctx context.Context, account *Account, newPassword, confirmation string) error {
	if account.IsNew() {
		return goerrors.New("account must be persisted before resetting its password", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if newPassword != confirmation {
		return PasswordMismatchError()
	}

	if violations := m.validator.ValidatePassword(newPassword); !violations.Empty() {
		return InvalidError(violations)
	}

	if err := m.machine.ResetTokenTransition(account, StateNoToken); err != nil {
		return err
	}

	from := account.ResetTokenState()

	hash, err := m.hasher.HashPassword(newPassword)
	if err != nil {
		return internalError(err, "failed to hash new password")
	}

	if err := m.repo.ClearResetTokenAndSetPassword(ctx, account, hash); err != nil {
		if IsNotFound(err) && account.ResetToken != "" {
			return tokenInvalidError("reset token")
		}
		return PersistenceError(err, "failed to reset password")
	}

	now := m.now()
	account.PasswordHash = hash
	account.ResetToken = ""
	account.ResetTokenIssuedAt = nil
	account.UpdatedAt = &now
	account.clearTransient()
	account.MarkLoaded()

	m.recordActivity(ctx, accountEvent(ActivityEventPasswordResetSuccess, account).
		transition(string(from), string(StateNoToken)))

	return nil
}

// ResetPasswordWithToken resolves token to its account and resets the password.
// Unknown tokens and tokens older than the configured TTL are rejected.
func (m *Manager) ResetPasswordWithToken(ctx context.Context, token, newPassword, confirmation string) (*Account, error) {
	const kind = "reset token"

	if newPassword != confirmation {
		return nil, PasswordMismatchError()
	}

	if token == "" {
		return nil, tokenInvalidError(kind)
	}

	account, err := m.repo.FindByResetToken(ctx, token)
	if err != nil {
		if IsNotFound(err) {
			return nil, tokenInvalidError(kind)
		}
		return nil, PersistenceError(err, "failed to retrieve account by reset token")
	}

	if account.ResetTokenExpired(m.config.ResetTokenTTL, m.now()) {
		return nil, tokenExpiredError(kind)
	}

	if err := m.ResetPassword(ctx, account, newPassword, confirmation); err != nil {
		return nil, err
	}

	return account, nil
}

// FindByIdentity returns the account matching any of the identity columns
// present in credentials, username and email by default.
func (m *Manager) FindByIdentity(ctx context.Context, credentials map[string]string, identityColumns ...string) (*Account, error) {
	account, err := m.repo.FindByIdentity(ctx, credentials, identityColumns...)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, PersistenceError(err, "failed to retrieve account")
	}
	return account, nil
}

// VerifyPassword checks password against the stored hash of account
func (m *Manager) VerifyPassword(account *Account, password string) error {
	if account == nil || account.PasswordHash == "" {
		return ErrMismatchedHashAndPassword
	}
	return m.hasher.ComparePasswordAndHash(password, account.PasswordHash)
}

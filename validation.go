package accounts

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// Default password length bounds. They are kept for compatibility with
// existing account stores and are weak by current standards, deployments
// should raise them through PasswordPolicy.
const (
	DefaultPasswordMinLength = 4
	DefaultPasswordMaxLength = 11
)

var alphaDash = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_-]+$`)

// ViolationTaken is the message of a username or email already in use
const ViolationTaken = "has already been taken"

// Violations maps a field name to a validation message
type Violations map[string]string

// Empty reports whether there are no violations
func (v Violations) Empty() bool {
	return len(v) == 0
}

// Has reports whether field has a violation
func (v Violations) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Fields returns the sorted list of fields with violations
func (v Violations) Fields() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Taken returns the sorted fields rejected because their value is in use
func (v Violations) Taken() []string {
	var fields []string
	for _, f := range v.Fields() {
		if v[f] == ViolationTaken {
			fields = append(fields, f)
		}
	}
	return fields
}

// String renders violations as "field: message" pairs
func (v Violations) String() string {
	parts := make([]string, 0, len(v))
	for _, f := range v.Fields() {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

// PasswordPolicy bounds the accepted password length
type PasswordPolicy struct {
	MinLength int `json:"min_length" mapstructure:"min_length"`
	MaxLength int `json:"max_length" mapstructure:"max_length"`
}

// DefaultPasswordPolicy returns the 4..11 compatibility policy
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: DefaultPasswordMinLength,
		MaxLength: DefaultPasswordMaxLength,
	}
}

func (p PasswordPolicy) normalized() PasswordPolicy {
	def := DefaultPasswordPolicy()
	if p.MinLength <= 0 {
		p.MinLength = def.MinLength
	}
	if p.MaxLength <= 0 {
		p.MaxLength = def.MaxLength
	}
	if p.MaxLength < p.MinLength {
		p.MaxLength = p.MinLength
	}
	return p
}

// RuleSet is a named collection of field constraints
type RuleSet struct {
	Name string
	// PasswordRequired makes password and its confirmation mandatory.
	PasswordRequired bool
	// PasswordPreserved only requires a stored password to be present,
	// skipping length and confirmation checks.
	PasswordPreserved bool
}

var (
	// RulesCreate applies to new accounts
	RulesCreate = RuleSet{Name: "create", PasswordRequired: true}
	// RulesUpdate applies to existing accounts, password is optional
	RulesUpdate = RuleSet{Name: "update"}
)

// WithPreservedPassword returns a copy of r where the password rule only
// requires the stored value to be present.
func (r RuleSet) WithPreservedPassword() RuleSet {
	r.Name = r.Name + "+preserved_password"
	r.PasswordPreserved = true
	return r
}

// UniquenessChecker is the subset of Repository used by validation
type UniquenessChecker interface {
	Exists(ctx context.Context, query IdentityQuery) (bool, error)
}

// Validator applies rule sets to accounts
type Validator struct {
	policy  PasswordPolicy
	checker UniquenessChecker
}

// ValidatorOption customizes a Validator
type ValidatorOption func(*Validator)

// WithPasswordPolicy overrides the password length bounds
func WithPasswordPolicy(policy PasswordPolicy) ValidatorOption {
	return func(v *Validator) {
		v.policy = policy.normalized()
	}
}

// NewValidator returns a validator that checks uniqueness against checker.
// A nil checker disables uniqueness rules.
func NewValidator(checker UniquenessChecker, opts ...ValidatorOption) *Validator {
	v := &Validator{
		policy:  DefaultPasswordPolicy(),
		checker: checker,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Policy returns the active password policy
func (v *Validator) Policy() PasswordPolicy {
	return v.policy
}

type accountInput struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Validate runs rules against account and returns the violations found.
// The account is never modified. A non nil error means a rule could not be
// evaluated, e.g. the uniqueness lookup failed.
func (v *Validator) Validate(ctx context.Context, account *Account, rules RuleSet) (Violations, error) {
	if account == nil {
		return Violations{"account": "cannot be nil"}, nil
	}

	in := accountInput{
		Username:             account.Username,
		Email:                account.Email,
		Password:             account.Password,
		PasswordConfirmation: account.PasswordConfirmation,
	}

	if rules.PasswordPreserved && in.Password == "" {
		in.Password = account.PasswordHash
	}

	err := validation.ValidateStruct(&in, v.fieldRules(ctx, &in, account.ID, rules)...)
	return collectViolations(err)
}

func (v *Validator) fieldRules(ctx context.Context, in *accountInput, exclude uuid.UUID, rules RuleSet) []*validation.FieldRules {
	minLen, maxLen := v.policy.MinLength, v.policy.MaxLength

	fields := []*validation.FieldRules{
		validation.Field(
			&in.Username,
			validation.Required,
			validation.Match(alphaDash).Error("may only contain letters, numbers, dashes and underscores"),
			validation.By(v.unique(ctx, "username", exclude)),
		),
		validation.Field(
			&in.Email,
			validation.Required,
			is.Email,
			validation.By(v.unique(ctx, "email", exclude)),
		),
	}

	switch {
	case rules.PasswordPreserved:
		fields = append(fields, validation.Field(&in.Password, validation.Required))
	case rules.PasswordRequired:
		fields = append(fields,
			validation.Field(
				&in.Password,
				validation.Required,
				validation.Length(minLen, maxLen),
				validation.By(ValidateStringEquals(in.PasswordConfirmation)),
			),
			validation.Field(&in.PasswordConfirmation, validation.Length(minLen, maxLen)),
		)
	default:
		fields = append(fields,
			validation.Field(
				&in.Password,
				validation.Length(minLen, maxLen),
				validation.By(validateConfirmedIfSet(in.PasswordConfirmation)),
			),
			validation.Field(&in.PasswordConfirmation, validation.Length(minLen, maxLen)),
		)
	}

	return fields
}

func (v *Validator) unique(ctx context.Context, column string, exclude uuid.UUID) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" || v.checker == nil {
			return nil
		}

		query := IdentityQuery{ExcludeID: exclude}
		switch column {
		case "username":
			query.Username = s
		case "email":
			query.Email = s
		}

		exists, err := v.checker.Exists(ctx, query)
		if err != nil {
			return validation.NewInternalError(err)
		}
		if exists {
			return errors.New(ViolationTaken)
		}
		return nil
	}
}

// ValidatePassword applies the password policy to a single plaintext value
func (v *Validator) ValidatePassword(password string) Violations {
	err := validation.Validate(password,
		validation.Required,
		validation.Length(v.policy.MinLength, v.policy.MaxLength),
	)
	if err != nil {
		return Violations{"password": err.Error()}
	}
	return nil
}

// ValidateStringEquals checks the value matches str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("does not match the confirmation")
		}
		return nil
	}
}

func validateConfirmedIfSet(confirmation string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		return ValidateStringEquals(confirmation)(value)
	}
}

func collectViolations(err error) (Violations, error) {
	if err == nil {
		return nil, nil
	}

	if ie, ok := err.(validation.InternalError); ok {
		return nil, ie.InternalError()
	}

	errs, ok := err.(validation.Errors)
	if !ok {
		return nil, err
	}

	violations := make(Violations, len(errs))
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		violations[field] = fieldErr.Error()
	}

	if violations.Empty() {
		return nil, nil
	}
	return violations, nil
}

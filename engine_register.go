package goCred

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/samber/oops"
)

// Register validates req, creates the subject through the configured
// SubjectRegistrar and issues a session for it. It returns
// ErrRegistrationDisabled when registration is turned off or the directory
// cannot create subjects, and ErrIdentifierTaken when the email or mobile
// is already in use.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if e == nil || e.hasher == nil || e.jwtManager == nil {
		return RegisterResult{}, ErrEngineNotReady
	}
	if e.registrar == nil || !e.config.Registration.Enabled {
		return RegisterResult{}, ErrRegistrationDisabled
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))

	if err := e.validateRegistration(req); err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, auditEventRegistrationFailure, false, "", req.Email, err, nil)
		return RegisterResult{}, err
	}

	email, err := e.channels.Email(req.Email)
	if err != nil {
		return RegisterResult{}, e.registrationRejected(ctx, req.Email, "email", err)
	}
	mobile, err := e.channels.Mobile(req.Mobile)
	if err != nil {
		return RegisterResult{}, e.registrationRejected(ctx, req.Email, "mobile", err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricRegistrationFailure)
		return RegisterResult{}, fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
	}

	subject, err := e.registrar.CreateSubject(ctx, NewSubject{
		Name:         req.Name,
		Email:        email,
		Mobile:       mobile,
		Kind:         req.Kind,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrIdentifierTaken) {
			e.metricInc(MetricRegistrationDuplicate)
			e.emitAudit(ctx, auditEventRegistrationDuplicate, false, "", email, ErrIdentifierTaken, nil)
			return RegisterResult{}, err
		}
		e.metricInc(MetricRegistrationFailure)
		err = directoryUnavailable("create_subject", err)
		e.logError(ctx, "create subject failed", err)
		return RegisterResult{}, err
	}

	token, claims, err := e.jwtManager.IssueSession(subject.ID, e.now())
	if err != nil {
		e.logError(ctx, "session signing failed", err)
		return RegisterResult{}, err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventRegistrationSuccess, true, subject.ID, email, nil, func() map[string]string {
		return map[string]string{
			"type": subject.Kind,
		}
	})

	return RegisterResult{
		Subject:   subject,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Message:   MessageAccountCreated,
	}, nil
}

// validateRegistration checks field shape first, then the password rules.
// Password length and confirmation are reported with their own sentinels.
func (e *Engine) validateRegistration(req RegisterRequest) error {
	kinds := make([]interface{}, 0, len(e.config.Registration.AllowedKinds))
	for _, k := range e.config.Registration.AllowedKinds {
		kinds = append(kinds, k)
	}

	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Email, validation.Required, is.EmailFormat),
		validation.Field(&req.Mobile, validation.Required, validation.By(e.minMobileDigits)),
		validation.Field(&req.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&req.Password, validation.Required),
	)
	if err != nil {
		return oops.
			In("registration").
			Code("INVALID_REGISTRATION").
			With("fields", invalidFields(err)).
			Wrap(fmt.Errorf("%w: %w", ErrInvalidRegistration, err))
	}

	if err := e.checkPasswordPolicy(req.Password); err != nil {
		return fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func (e *Engine) minMobileDigits(value interface{}) error {
	s, _ := value.(string)
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < e.config.Registration.MinMobileDigits {
		return fmt.Errorf("must contain at least %d digits", e.config.Registration.MinMobileDigits)
	}
	return nil
}

func (e *Engine) registrationRejected(ctx context.Context, ch, field string, err error) error {
	e.metricInc(MetricRegistrationFailure)
	out := oops.
		In("registration").
		Code("INVALID_REGISTRATION").
		With("fields", field).
		Wrap(fmt.Errorf("%w: %w", ErrInvalidRegistration, err))
	e.emitAudit(ctx, auditEventRegistrationFailure, false, "", ch, out, nil)
	return out
}

func invalidFields(err error) string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return ""
	}
	fields := make([]string, 0, len(verrs))
	for name := range verrs {
		fields = append(fields, name)
	}
	slices.Sort(fields)
	return strings.Join(fields, ",")
}

package discount

import "fmt"

// Kind classifies why a code was refused.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindNotYetValid         Kind = "not_yet_valid"
	KindExpired             Kind = "expired"
	KindBelowMinimum        Kind = "below_minimum"
	KindUsageLimitReached   Kind = "usage_limit_reached"
	KindPerUserLimitReached Kind = "per_user_limit_reached"
)

// Error is returned for every refusal.  errors.Is matches on Kind, so
// callers compare against the sentinels below.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("discount code %q not found", e.Code)
	case KindNotYetValid:
		return fmt.Sprintf("discount code %q is not valid yet", e.Code)
	case KindExpired:
		return fmt.Sprintf("discount code %q has expired", e.Code)
	case KindBelowMinimum:
		return fmt.Sprintf("order total is below the minimum for discount code %q", e.Code)
	case KindUsageLimitReached:
		return fmt.Sprintf("discount code %q has reached its usage limit", e.Code)
	case KindPerUserLimitReached:
		return fmt.Sprintf("you have already used discount code %q the maximum number of times", e.Code)
	}
	return "discount code rejected"
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrNotYetValid         = &Error{Kind: KindNotYetValid}
	ErrExpired             = &Error{Kind: KindExpired}
	ErrBelowMinimum        = &Error{Kind: KindBelowMinimum}
	ErrUsageLimitReached   = &Error{Kind: KindUsageLimitReached}
	ErrPerUserLimitReached = &Error{Kind: KindPerUserLimitReached}
)

func refuse(k Kind, code string) error { return &Error{Kind: k, Code: code} }

package userfilter

import (
	"fmt"
)

// ForUserConfig configures ForUser filters.
type ForUserConfig struct {
	// AllIfNoUser makes a call without a user match every row instead of none.
	AllIfNoUser bool `yaml:"all_if_no_user" envconfig:"FLEXQUERY_ALL_IF_NO_USER"`
}

// NoUserBehavior decides what a UserBased filter does when no user is given.
type NoUserBehavior int

const (
	// NeverMatch restricts the result to nothing. It is the default.
	NeverMatch NoUserBehavior = iota

	// AlwaysTrue leaves the base collection unrestricted.
	AlwaysTrue

	// PassThrough calls the filter function with a nil user.
	PassThrough
)

var noUserBehaviorNames = map[NoUserBehavior]string{
	NeverMatch:  "never_match",
	AlwaysTrue:  "always_true",
	PassThrough: "pass_through",
}

func (b NoUserBehavior) String() string {
	if name, ok := noUserBehaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("NoUserBehavior(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b NoUserBehavior) MarshalText() ([]byte, error) {
	name, ok := noUserBehaviorNames[b]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBehavior, int(b))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so the behavior can be
// set from yaml files and environment variables.
func (b *NoUserBehavior) UnmarshalText(text []byte) error {
	for value, name := range noUserBehaviorNames {
		if name == string(text) {
			*b = value
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidBehavior, string(text))
}

// UserBasedConfig configures UserBased filters.
type UserBasedConfig struct {
	// NoUserBehavior applies when the call carries no user.
	NoUserBehavior NoUserBehavior `yaml:"no_user_behavior" envconfig:"FLEXQUERY_NO_USER_BEHAVIOR"`

	// TreatAnonymousAsMissing handles anonymous users like a missing user.
	// By default they are handed to the filter function.
	TreatAnonymousAsMissing bool `yaml:"treat_anonymous_as_missing" envconfig:"FLEXQUERY_TREAT_ANONYMOUS_AS_MISSING"`
}

// DefaultUserBasedConfig returns the zero UserBasedConfig: NeverMatch with
// anonymous users passed through.
func DefaultUserBasedConfig() UserBasedConfig {
	return UserBasedConfig{}
}

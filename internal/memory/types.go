package memory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Type is the closed set of memory kinds.
type Type string

const (
	TypeDecision   Type = "decision"
	TypeLearning   Type = "learning"
	TypeArtifact   Type = "artifact"
	TypeGotcha     Type = "gotcha"
	TypeBreadcrumb Type = "breadcrumb"
	TypeHub        Type = "hub"
)

// Scope is the storage tier a memory belongs to.
type Scope string

const (
	ScopeLocal      Scope = "local"
	ScopeProject    Scope = "project"
	ScopeGlobal     Scope = "global"
	ScopeEnterprise Scope = "enterprise"
)

// Severity applies to gotcha memories only.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EphemeralPrefix marks transient "thought" records. They are stored like any
// other memory but excluded from semantic indexing and link suggestion.
const EphemeralPrefix = "thought-"

var (
	ErrNotFound   = errors.New("memory not found")
	ErrValidation = errors.New("validation failed")
	ErrParse      = errors.New("parse failed")
)

// Memory is a persisted, typed knowledge record.
type Memory struct {
	ID       string
	Type     Type
	Title    string
	Content  string
	Tags     []string
	Scope    Scope
	Severity Severity
	Links    []string
	Created  time.Time
	Updated  time.Time

	// Tier is "permanent" or "temporary", derived from the file location.
	Tier string
	// File is the path the memory was loaded from.
	File string
}

// IsEphemeral reports whether the memory is a transient thought record.
func (m *Memory) IsEphemeral() bool {
	return strings.HasPrefix(m.ID, EphemeralPrefix)
}

// SaveRequest is the validated input for Store.Save.
type SaveRequest struct {
	Type     string   `validate:"required,oneof=decision learning artifact gotcha breadcrumb hub"`
	Title    string   `validate:"required"`
	Content  string   `validate:"-"`
	Tags     []string `validate:"dive,min=1"`
	Scope    string   `validate:"omitempty,oneof=local project global enterprise"`
	Severity string   `validate:"omitempty,oneof=low medium high critical"`
	Links    []string `validate:"dive,min=1"`
	// Temporary forces the temporary tier regardless of type.
	Temporary bool
}

var validate = validator.New()

var idPattern = regexp.MustCompile(`^[a-z]+-[a-z0-9][a-z0-9-]*$`)

// ValidID reports whether id has the canonical type-slug shape.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate applies struct-level and type-specific rules. Severity is only
// meaningful for gotcha; empty content is only allowed for breadcrumb.
func (r *SaveRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", ErrValidation)
	}
	if r.Severity != "" && Type(r.Type) != TypeGotcha {
		return fmt.Errorf("%w: severity is only valid for gotcha memories", ErrValidation)
	}
	if strings.TrimSpace(r.Content) == "" && Type(r.Type) != TypeBreadcrumb {
		return fmt.Errorf("%w: content is required for %s memories", ErrValidation, r.Type)
	}
	return nil
}

var slugStripRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowers a title to a filesystem and ID safe slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

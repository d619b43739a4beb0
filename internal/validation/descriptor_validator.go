package validation

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fetchmill/fetchmill/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("fetchable_url", validateFetchableURL)
}

// hostnames that never name a fetchable origin, regardless of what they
// resolve to.
var forbiddenHosts = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
}

// ValidateDescriptors checks a resolved descriptor collection before it
// reaches the engine. URLs must be well-formed http(s) and must not point
// at loopback, private, link-local, or unspecified addresses; every
// descriptor needs a destination, and extraction requests need a target
// directory.
func ValidateDescriptors(descs []domain.ResourceDescriptor) error {
	for i, d := range descs {
		if err := validate.Var(d.URL, "required,fetchable_url"); err != nil {
			return fmt.Errorf("descriptor %d: URL %q is not fetchable: %w", i, d.URL, err)
		}
		if d.Destination == "" {
			return fmt.Errorf("descriptor %d: destination is empty", i)
		}
		if d.Extract != nil && d.Extract.TargetDir == "" {
			return fmt.Errorf("descriptor %d: extraction target directory is empty", i)
		}
	}
	return nil
}

func validateFetchableURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}
	if _, bad := forbiddenHosts[strings.ToLower(host)]; bad {
		return false
	}

	// IP literals are screened directly; hostnames are screened again at
	// dial time by whatever resolver policy the deployment runs under.
	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
			return false
		}
	}
	return true
}

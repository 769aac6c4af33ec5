package aranet

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`),
	regexp.MustCompile(`^([0-9a-f]{2}-){5}[0-9a-f]{2}$`),
	regexp.MustCompile(`^[0-9a-f]{12}$`),
	// CoreBluetooth identifies peripherals by UUID instead of MAC
	regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`),
}

// ValidateAddress checks a device identifier before any I/O is attempted.
func ValidateAddress(address string) error {
	addr := strings.ToLower(strings.TrimSpace(address))
	for _, re := range addressPatterns {
		if re.MatchString(addr) {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidAddress, "%q", address)
}

var bareMAC = regexp.MustCompile(`^[0-9a-fA-F]{12}$`)

// NormalizeAddress rewrites the accepted MAC notations into lower case colon
// form. UUID identifiers are only lower cased.
func NormalizeAddress(address string) string {
	addr := strings.TrimSpace(address)
	if bareMAC.MatchString(addr) {
		parts := make([]string, 0, 6)
		for i := 0; i < len(addr); i += 2 {
			parts = append(parts, addr[i:i+2])
		}
		addr = strings.Join(parts, ":")
	}
	if strings.Count(addr, "-") == 5 {
		addr = strings.ReplaceAll(addr, "-", ":")
	}
	return strings.ToLower(addr)
}

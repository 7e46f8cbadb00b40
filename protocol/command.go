package protocol

import (
	"fmt"
	"strings"
)

// Separator joins command fields on the wire.
const Separator = "-"

const (
	cmdGetVersion     = "getversion"
	prefixGetUserName = "getusername" + Separator
	prefixLogout      = "logout" + Separator
)

// Kind tags the variant of a decoded Command.
type Kind int

const (
	KindGetVersion Kind = iota + 1
	KindGetUserName
	KindLogout
	KindValidate
)

// String returns the command name used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindGetVersion:
		return "getversion"
	case KindGetUserName:
		return "getusername"
	case KindLogout:
		return "logout"
	case KindValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// Command is one decoded request. LicenseKey and MachineID are empty for KindGetVersion.
type Command struct {
	Kind       Kind
	LicenseKey string
	MachineID  string
}

// GetVersion builds a version query.
func GetVersion() Command { return Command{Kind: KindGetVersion} }

// GetUserName builds a user name lookup for key and mac.
func GetUserName(key, mac string) Command {
	return Command{Kind: KindGetUserName, LicenseKey: key, MachineID: mac}
}

// Logout builds a seat release for key and mac.
func Logout(key, mac string) Command {
	return Command{Kind: KindLogout, LicenseKey: key, MachineID: mac}
}

// Validate builds a seat claim for key and mac.
func Validate(key, mac string) Command {
	return Command{Kind: KindValidate, LicenseKey: key, MachineID: mac}
}

// String renders the command as its wire line without a terminator.
func (c Command) String() string {
	switch c.Kind {
	case KindGetVersion:
		return cmdGetVersion
	case KindGetUserName:
		return prefixGetUserName + c.LicenseKey + Separator + c.MachineID
	case KindLogout:
		return prefixLogout + c.LicenseKey + Separator + c.MachineID
	case KindValidate:
		return c.LicenseKey + Separator + c.MachineID
	default:
		return ""
	}
}

// Validate checks that the command can be encoded and decoded back unchanged.
func (c Command) Validate() error {
	switch c.Kind {
	case KindGetVersion:
		return nil
	case KindGetUserName, KindLogout, KindValidate:
	default:
		return fmt.Errorf("%w: unknown command kind %d", ErrInvalidField, c.Kind)
	}

	if err := checkField("license key", c.LicenseKey); err != nil {
		return err
	}
	if strings.Contains(c.LicenseKey, Separator) {
		return fmt.Errorf("%w: license key must not contain %q", ErrInvalidField, Separator)
	}
	if err := checkField("machine id", c.MachineID); err != nil {
		return err
	}
	if c.Kind == KindValidate && strings.Contains(c.MachineID, Separator) {
		return fmt.Errorf("%w: machine id must not contain %q in a validation request", ErrInvalidField, Separator)
	}
	if c.Kind == KindValidate && isReservedWord(c.LicenseKey) {
		return fmt.Errorf("%w: license key %q collides with a command name", ErrInvalidField, c.LicenseKey)
	}
	return nil
}

func checkField(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidField, name)
	}
	if v != strings.TrimSpace(v) || strings.ContainsAny(v, "\r\n") {
		return fmt.Errorf("%w: %s contains surrounding whitespace or line breaks", ErrInvalidField, name)
	}
	return nil
}

// isReservedWord reports whether key would make "<key>-<mac>" decode as a prefixed command.
func isReservedWord(key string) bool {
	return strings.EqualFold(key, "getusername") || strings.EqualFold(key, "logout")
}

package server

import (
	"context"
	"errors"
	"strings"

	"github.com/jathurchan/seatlicense/protocol"
	"github.com/jathurchan/seatlicense/types"
)

// Outcome labels how one request ended.
type Outcome int

const (
	OutcomeVersion Outcome = iota
	OutcomeClaimed
	OutcomeAlreadyBound
	OutcomeNoCapacity
	OutcomeKeyNotFound
	OutcomeUserFound
	OutcomeUserNotFound
	OutcomeReleased
	OutcomeLicenseNotFound
	OutcomeMacNotFound
	OutcomeStoreError
	OutcomeEmpty
	OutcomeMalformed
	OutcomeReadError
	OutcomeRateLimited
	OutcomePanic
)

var outcomeNames = map[Outcome]string{
	OutcomeVersion:         "version",
	OutcomeClaimed:         "claimed",
	OutcomeAlreadyBound:    "already_bound",
	OutcomeNoCapacity:      "no_capacity",
	OutcomeKeyNotFound:     "key_not_found",
	OutcomeUserFound:       "user_found",
	OutcomeUserNotFound:    "user_not_found",
	OutcomeReleased:        "released",
	OutcomeLicenseNotFound: "license_not_found",
	OutcomeMacNotFound:     "mac_not_found",
	OutcomeStoreError:      "store_error",
	OutcomeEmpty:           "empty",
	OutcomeMalformed:       "malformed",
	OutcomeReadError:       "read_error",
	OutcomeRateLimited:     "rate_limited",
	OutcomePanic:           "panic",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the outcome counts toward validRequests.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeVersion, OutcomeClaimed, OutcomeAlreadyBound, OutcomeUserFound, OutcomeReleased:
		return true
	default:
		return false
	}
}

// reply is the result of dispatching one request line.
type reply struct {
	command string
	outcome Outcome
	// respond is false when the connection must be closed without writing.
	respond bool
	text    string
	err     error
}

// dispatch decodes line and executes it against the store.
func (s *Server) dispatch(ctx context.Context, line string) reply {
	cmd, err := protocol.Decode(line)
	if err != nil {
		outcome := OutcomeMalformed
		if errors.Is(err, protocol.ErrEmptyRequest) {
			outcome = OutcomeEmpty
		}
		return reply{command: "unknown", outcome: outcome, err: err}
	}

	r := reply{command: cmd.Kind.String(), respond: true}
	switch cmd.Kind {
	case protocol.KindGetVersion:
		r.outcome, r.text = OutcomeVersion, s.config.Version

	case protocol.KindValidate:
		res, _, err := s.store.TryClaimSeat(ctx, cmd.LicenseKey, cmd.MachineID)
		if err != nil {
			return s.storeFailure(r, err)
		}
		r.outcome = claimOutcome(res)
		r.text = protocol.ValidationResponse(res.Granted())

	case protocol.KindGetUserName:
		res, entry, err := s.store.TryClaimSeat(ctx, cmd.LicenseKey, cmd.MachineID)
		if err != nil {
			return s.storeFailure(r, err)
		}
		if !res.Granted() || strings.TrimSpace(entry.Name) == "" {
			r.outcome, r.text = OutcomeUserNotFound, protocol.ResponseUserNotFound
			break
		}
		r.outcome, r.text = OutcomeUserFound, entry.Name

	case protocol.KindLogout:
		res, err := s.store.ReleaseSeat(ctx, cmd.LicenseKey, cmd.MachineID)
		if err != nil {
			r = s.storeFailure(r, err)
			r.respond, r.text = true, protocol.ResponseErrorLoadingStores
			return r
		}
		switch res {
		case types.ReleaseReleased:
			r.outcome, r.text = OutcomeReleased, protocol.ResponseLogoutSuccess
		case types.ReleaseKeyNotFound:
			r.outcome, r.text = OutcomeLicenseNotFound, protocol.ResponseLicenseNotFound
		default:
			r.outcome, r.text = OutcomeMacNotFound, protocol.ResponseMacNotFound
		}
	}
	return r
}

// storeFailure turns a store error into a reply without a response.
func (s *Server) storeFailure(r reply, err error) reply {
	s.metrics.IncrStoreError(r.command)
	r.outcome, r.respond, r.text, r.err = OutcomeStoreError, false, "", err
	return r
}

func claimOutcome(res types.ClaimResult) Outcome {
	switch res {
	case types.ClaimValid:
		return OutcomeClaimed
	case types.ClaimAlreadyBound:
		return OutcomeAlreadyBound
	case types.ClaimNoCapacity:
		return OutcomeNoCapacity
	default:
		return OutcomeKeyNotFound
	}
}

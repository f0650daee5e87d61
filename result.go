package resolver

import "github.com/hashicorp/go-multierror"

// Resolution is the top-level Ok/Conflict sum type (§6, §9 "Representation
// of the Resolution sum"): either a finished name→package mapping or a
// conflict report, plus a trailing list of accumulated non-fatal errors
// (source-unavailable captures from individual explorations). Grounded on
// the teacher's result.go Result/result pair, replacing the vendor-export
// CreateVendorTree helper (explicitly out of scope: "does not mutate the
// filesystem") with the Ok/Conflict variant the spec actually calls for.
type Resolution struct {
	ok       bool
	mapping  map[string]Resolved
	conflict *ConflictError
	errs     *multierror.Error
}

// Ok builds a successful Resolution.
func Ok(mapping map[string]Resolved, errs *multierror.Error) Resolution {
	return Resolution{ok: true, mapping: mapping, errs: errs}
}

// ConflictResolution builds a failed Resolution carrying its report.
func ConflictResolution(c *ConflictError, errs *multierror.Error) Resolution {
	return Resolution{ok: false, conflict: c, errs: errs}
}

func (r Resolution) IsOk() bool { return r.ok }

// Mapping returns the resolved name→package assignment; valid only when
// IsOk() is true.
func (r Resolution) Mapping() map[string]Resolved { return r.mapping }

// Conflict returns the conflict report; valid only when IsOk() is false.
func (r Resolution) Conflict() *ConflictError { return r.conflict }

// Errors returns the accumulated non-fatal errors collected during search
// (per §7: "reported as a warning on the final Ok result").
func (r Resolution) Errors() *multierror.Error { return r.errs }

// Report renders a full printable error: the conflict trace (if any)
// wrapped together with every accumulated non-fatal error, per §7's
// "Structural user error ... reports the conflict text wrapped together
// with accumulated errors."
func (r Resolution) Report() string {
	var out string
	if !r.ok && r.conflict != nil {
		out = r.conflict.traceString()
	}
	if r.errs != nil && len(r.errs.Errors) > 0 {
		if out != "" {
			out += "\n"
		}
		out += "accumulated warnings:\n" + r.errs.Error()
	}
	return out
}

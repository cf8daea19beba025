package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/eaform"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var (
		runExists    *payroll.RunExistsError
		transition   *payroll.TransitionError
		insufficient *leave.InsufficientBalanceError
		notFinal     *eaform.YearNotFinalizedError
		clockBroken  *attendance.DataInconsistencyError
		payBroken    *payroll.DataInconsistencyError
		badAge       *statutory.InvalidAgeError
	)
	switch {
	case errors.As(err, &runExists):
		details := map[string]string{
			"company_id": runExists.CompanyID,
			"month":      strconv.Itoa(runExists.Month),
			"year":       strconv.Itoa(runExists.Year),
		}
		if runExists.RunID != "" {
			details["run_id"] = runExists.RunID
		}
		ConflictWithDetails(w, runExists.Error(), details)
		return
	case errors.As(err, &transition):
		BadRequest(w, transition.Error(), map[string]string{"run_id": transition.RunID, "status": string(transition.From)})
		return
	case errors.As(err, &insufficient):
		BadRequest(w, "Insufficient leave balance", map[string]string{
			"requested": insufficient.Requested.String(),
			"available": insufficient.Available.String(),
		})
		return
	case errors.As(err, &notFinal):
		BadRequest(w, notFinal.Error(), nil)
		return
	case errors.As(err, &clockBroken):
		ConflictWithDetails(w, clockBroken.Error(), map[string]string{"record_id": clockBroken.RecordID})
		return
	case errors.As(err, &payBroken):
		ConflictWithDetails(w, payBroken.Error(), map[string]string{"source": payBroken.Source})
		return
	case errors.As(err, &badAge):
		BadRequest(w, badAge.Error(), map[string]string{"age": strconv.Itoa(badAge.Age)})
		return
	}

	switch {
	// Authorization. The tenant that owns a resource is never disclosed.
	case errors.Is(err, jwt.ErrMissingClaims):
		Unauthorized(w, "Missing tenant claims")
	case errors.Is(err, jwt.ErrInsufficientRole):
		Forbidden(w, "Insufficient role")
	case errors.Is(err, jwt.ErrTenantMismatch):
		Forbidden(w, "Access denied")

	// Company domain errors
	case errors.Is(err, company.ErrCompanyNotFound):
		NotFound(w, "Company not found")
	case errors.Is(err, company.ErrGroupingNotFound):
		NotFound(w, "Department or outlet not found")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrClockRecordNotFound):
		NotFound(w, "Clock record not found")
	case errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrInvalidClockAction):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNoOvertime):
		BadRequest(w, err.Error(), nil)

	// Leave domain errors
	case errors.Is(err, leave.ErrLeaveRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrLeaveTypeNotFound):
		NotFound(w, "Leave type not found")
	case errors.Is(err, leave.ErrBalanceNotFound):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, leave.ErrLeaveRequestAlreadyProcessed),
		errors.Is(err, leave.ErrOverlappingLeave):
		Conflict(w, err.Error())
	case errors.Is(err, leave.ErrNotEligible),
		errors.Is(err, leave.ErrNoWorkingDays):
		BadRequest(w, err.Error(), nil)

	// Claim domain errors
	case errors.Is(err, claim.ErrClaimNotFound):
		NotFound(w, "Claim not found")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrItemNotFound):
		NotFound(w, "Payroll item not found")
	case errors.Is(err, payroll.ErrRunHasFailedItems),
		errors.Is(err, payroll.ErrRunHasNoItems),
		errors.Is(err, payroll.ErrItemNotRelinkable),
		errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrSnapshotNotFound):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrPayrollLockedPeriod):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrSnapshotMismatch):
		Conflict(w, err.Error())

	// EA form domain errors
	case errors.Is(err, eaform.ErrFormNotFound):
		NotFound(w, "EA form not found")
	case errors.Is(err, eaform.ErrNoPaidPayroll):
		NotFound(w, err.Error())

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

package eaform

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/eaform"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

const dateLayout = "2006-01-02"

// Aggregate sums the paid items of one employee's year into form data.
func Aggregate(comp company.Company, emp employee.Employee, year int, items []payroll.Item) eaform.FormData {
	z := decimal.Zero
	data := eaform.FormData{
		Version:  eaform.FormDataVersion,
		Year:     year,
		Employer: eaform.Employer{CompanyID: comp.ID, Name: comp.Name},
		Employee: eaform.Employee{
			EmployeeID:   emp.ID,
			EmployeeCode: emp.EmployeeCode,
			FullName:     emp.FullName,
			ICNumber:     emp.ICNumber,
			JoinDate:     emp.JoinDate.Format(dateLayout),
		},
		Months:                len(items),
		Income:                eaform.Income{Salary: z, Commission: z, Bonus: z, Allowances: z, Overtime: z, Claims: z, Gross: z},
		BenefitsInKind:        z,
		Deductions:            eaform.Deductions{EPF: z, SOCSO: z, EIS: z, PCB: z},
		EmployerContributions: eaform.Contributions{EPF: z, SOCSO: z, EIS: z},
	}
	if emp.LastWorkingDay != nil && emp.LastWorkingDay.Year() == year {
		lwd := emp.LastWorkingDay.Format(dateLayout)
		data.Employee.LastWorkingDay = &lwd
	}

	inc, ded, er := &data.Income, &data.Deductions, &data.EmployerContributions
	for _, it := range items {
		e, d := it.Earnings, it.Deductions
		inc.Salary = inc.Salary.Add(e.BasicSalary)
		inc.Commission = inc.Commission.Add(e.Commission).Add(e.TripCommission)
		inc.Bonus = inc.Bonus.Add(e.Bonus)
		inc.Allowances = inc.Allowances.Add(e.Allowance).Add(e.Outstation).Add(e.OtherEarnings).Add(e.AttendanceBonus)
		inc.Overtime = inc.Overtime.Add(e.OTAmount).Add(e.PHPay)
		inc.Claims = inc.Claims.Add(e.Claims)
		inc.Gross = inc.Gross.Add(it.Gross)

		data.BenefitsInKind = data.BenefitsInKind.Add(it.BenefitsInKind)

		ded.EPF = ded.EPF.Add(d.EPFEmployee)
		ded.SOCSO = ded.SOCSO.Add(d.SOCSOEmployee)
		ded.EIS = ded.EIS.Add(d.EISEmployee)
		ded.PCB = ded.PCB.Add(d.PCB)

		er.EPF = er.EPF.Add(d.EPFEmployer)
		er.SOCSO = er.SOCSO.Add(d.SOCSOEmployer)
		er.EIS = er.EIS.Add(d.EISEmployer)
	}
	return data
}

type sourceItem struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceHash fingerprints the items a form was generated from. It changes
// when an item is added, removed or rewritten.
func SourceHash(items []payroll.Item) (string, error) {
	src := make([]sourceItem, 0, len(items))
	for _, it := range items {
		s := sourceItem{ID: it.ID, UpdatedAt: it.UpdatedAt.UTC()}
		if it.SnapshotHash != nil {
			s.Hash = *it.SnapshotHash
		}
		src = append(src, s)
	}
	sort.Slice(src, func(i, j int) bool { return src[i].ID < src[j].ID })

	b, err := json.Marshal(src)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// internal/features/input.go
package features

import (
	"errors"
	"fmt"
)

// ApplicantInput is one applicant's attributes as collected by the form.
// Domain checks happen before an ApplicantInput is built; Build trusts it.
type ApplicantInput struct {
	Age                   int
	MonthlySalary         int64
	YearsOfEmployment     float64
	Dependents            int
	ExistingLoans         bool
	CreditScore           int
	RequestedAmount       int64
	RequestedTenureMonths int
	MonthlyExpenses       int64
	EmergencyFund         int64

	// Pre-encoded category codes. Their meaning belongs to the model training pipeline.
	EducationLevelCode int
	EmploymentTypeCode int
	CompanyTypeCode    int
	HouseTypeCode      int

	Scenario EMIScenario
}

// EMIScenario flags are independent; any subset may be set.
type EMIScenario struct {
	Education      bool `json:"education"`
	HomeAppliances bool `json:"homeAppliances"`
	PersonalLoan   bool `json:"personalLoan"`
	Vehicle        bool `json:"vehicle"`
}

// DisposableFunds is salary minus expenses. It is not floored and may be negative.
func (in ApplicantInput) DisposableFunds() int64 {
	return in.MonthlySalary - in.MonthlyExpenses
}

// ApplicantForm is the wire shape shared by the HTTP API and the Zeebe worker.
// Pointers distinguish a missing field from a legitimate zero.
type ApplicantForm struct {
	Age                   *int        `json:"age" binding:"required,min=18,max=70"`
	MonthlySalary         *int64      `json:"monthlySalary" binding:"required,min=10000,max=500000"`
	YearsOfEmployment     *float64    `json:"yearsOfEmployment" binding:"required,min=0,max=40"`
	Dependents            *int        `json:"dependents" binding:"required,min=0,max=10"`
	ExistingLoans         *int        `json:"existingLoans" binding:"required,oneof=0 1"`
	CreditScore           *int        `json:"creditScore" binding:"required,min=300,max=900"`
	RequestedAmount       *int64      `json:"requestedAmount" binding:"required,min=50000,max=5000000"`
	RequestedTenureMonths *int        `json:"requestedTenureMonths" binding:"required,min=6,max=120"`
	MonthlyExpenses       *int64      `json:"monthlyExpenses" binding:"required,min=0,max=300000"`
	EmergencyFund         *int64      `json:"emergencyFund" binding:"required,min=0,max=5000000"`
	EducationLevel        *int        `json:"educationLevel" binding:"required,min=0,max=4"`
	EmploymentType        *int        `json:"employmentType" binding:"required,min=0,max=2"`
	CompanyType           *int        `json:"companyType" binding:"required,min=0,max=4"`
	HouseType             *int        `json:"houseType" binding:"required,min=0,max=3"`
	EMIScenario           EMIScenario `json:"emiScenario"`
}

var ErrIncompleteForm = errors.New("applicant form incomplete")

// ToInput converts a validated form. Missing fields are reported, ranges are not re-checked.
func (f *ApplicantForm) ToInput() (ApplicantInput, error) {
	var missing []string
	intOf := func(name string, p *int) int {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}
	amountOf := func(name string, p *int64) int64 {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}

	in := ApplicantInput{
		Age:                   intOf("age", f.Age),
		MonthlySalary:         amountOf("monthlySalary", f.MonthlySalary),
		Dependents:            intOf("dependents", f.Dependents),
		ExistingLoans:         intOf("existingLoans", f.ExistingLoans) == 1,
		CreditScore:           intOf("creditScore", f.CreditScore),
		RequestedAmount:       amountOf("requestedAmount", f.RequestedAmount),
		RequestedTenureMonths: intOf("requestedTenureMonths", f.RequestedTenureMonths),
		MonthlyExpenses:       amountOf("monthlyExpenses", f.MonthlyExpenses),
		EmergencyFund:         amountOf("emergencyFund", f.EmergencyFund),
		EducationLevelCode:    intOf("educationLevel", f.EducationLevel),
		EmploymentTypeCode:    intOf("employmentType", f.EmploymentType),
		CompanyTypeCode:       intOf("companyType", f.CompanyType),
		HouseTypeCode:         intOf("houseType", f.HouseType),
		Scenario:              f.EMIScenario,
	}
	if f.YearsOfEmployment == nil {
		missing = append(missing, "yearsOfEmployment")
	} else {
		in.YearsOfEmployment = *f.YearsOfEmployment
	}

	if len(missing) > 0 {
		return ApplicantInput{}, fmt.Errorf("%w: missing %v", ErrIncompleteForm, missing)
	}
	return in, nil
}

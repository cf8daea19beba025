package employee

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeIC(t *testing.T) {
	assert.Equal(t, "950312145678", NormalizeIC(" 950312-14-5678 "))
	assert.Equal(t, "950312145678", NormalizeIC("950312 14 5678"))
}

func TestBirthDateFromIC(t *testing.T) {
	asOf := date(2025, 1, 31)

	dob, err := BirthDateFromIC("950312-14-5678", asOf)
	require.NoError(t, err)
	assert.Equal(t, date(1995, 3, 12), dob)

	dob, err = BirthDateFromIC("050101-10-1234", asOf)
	require.NoError(t, err)
	assert.Equal(t, date(2005, 1, 1), dob)

	_, err = BirthDateFromIC("950231-14-5678", asOf)
	assert.True(t, errors.Is(err, ErrInvalidIC))

	_, err = BirthDateFromIC("95031214", asOf)
	assert.True(t, errors.Is(err, ErrInvalidIC))
}

func TestAgeAt(t *testing.T) {
	dob := date(1965, 6, 15)
	e := Employee{DOB: &dob}

	age, err := e.AgeAt(date(2025, 6, 14))
	require.NoError(t, err)
	assert.Equal(t, 59, age)

	age, err = e.AgeAt(date(2025, 6, 15))
	require.NoError(t, err)
	assert.Equal(t, 60, age)

	fromIC := Employee{ICNumber: "950312-14-5678"}
	age, err = fromIC.AgeAt(date(2025, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, 29, age)

	_, err = Employee{}.AgeAt(date(2025, 1, 31))
	assert.Error(t, err)
}

func TestActiveOn(t *testing.T) {
	lwd := date(2025, 3, 15)
	e := Employee{JoinDate: date(2024, 1, 1), LastWorkingDay: &lwd}

	assert.False(t, e.ActiveOn(date(2023, 12, 31)))
	assert.True(t, e.ActiveOn(date(2025, 3, 15)))
	assert.False(t, e.ActiveOn(date(2025, 3, 16)))
}

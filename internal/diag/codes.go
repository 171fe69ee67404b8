package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Операторы жизненного цикла
	DtorInfo                   Code = 5000
	DtorOpUnavailable          Code = 5001
	DtorOpMissing              Code = 5002
	DtorOpGeneric              Code = 5003
	DtorDiscriminantDestructor Code = 5004
	DtorOpenArraySinkCopy      Code = 5005

	// Подсказки и предупреждения
	DtorImplicitCopy Code = 5100
	DtorCycleCreated Code = 5101

	// Внутренние ошибки прохода
	DtorInternal Code = 5900
)

var codeName = map[Code]string{
	UnknownCode:                "E0000",
	DtorInfo:                   "DTR5000",
	DtorOpUnavailable:          "DTR5001",
	DtorOpMissing:              "DTR5002",
	DtorOpGeneric:              "DTR5003",
	DtorDiscriminantDestructor: "DTR5004",
	DtorOpenArraySinkCopy:      "DTR5005",
	DtorImplicitCopy:           "DTR5100",
	DtorCycleCreated:           "DTR5101",
	DtorInternal:               "DTR5900",
}

var codeTitle = map[Code]string{
	UnknownCode:                "unknown error",
	DtorInfo:                   "destructor pass information",
	DtorOpUnavailable:          "lifecycle operator is not available",
	DtorOpMissing:              "lifecycle operator not found",
	DtorOpGeneric:              "lifecycle operator is still generic",
	DtorDiscriminantDestructor: "discriminant assignment with user destructor",
	DtorOpenArraySinkCopy:      "implicit openArray copy into sink parameter",
	DtorImplicitCopy:           "implicit copy into sink parameter",
	DtorCycleCreated:           "assignment creates a reference cycle",
	DtorInternal:               "internal destructor pass error",
}

func (c Code) ID() string {
	if name, ok := codeName[c]; ok {
		return name
	}
	return codeName[UnknownCode]
}

func (c Code) Title() string {
	if title, ok := codeTitle[c]; ok {
		return title
	}
	return codeTitle[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

package dto

import "time"

// SelectedCell is a weekday/hour pair picked from the weekly grid.
// Weekday 0 is Sunday.
type SelectedCell struct {
	Weekday int `json:"weekday" validate:"min=0,max=6"`
	Hour    int `json:"hour" validate:"min=0,max=23"`
}

// FreeCellsRequest asks for the free weekday/hour cells of a date window.
// Selected holds compressed instants the student already picked; Cells
// holds picked weekday/hours, placed at their first occurrence in the window.
type FreeCellsRequest struct {
	Start             time.Time `validate:"required"`
	End               time.Time `validate:"required,gtefield=Start"`
	Recurring         bool
	Selected          []int64        `validate:"omitempty,max=168,dive,gt=0"`
	Cells             []SelectedCell `validate:"omitempty,max=168,dive"`
	AssignedTeacherID *int           `validate:"omitempty,gt=0"`
	StudentID         *int           `validate:"omitempty,gt=0"`
}

// FreeCell is one bookable weekday/hour pair with the teachers free then.
type FreeCell struct {
	Weekday    int   `json:"weekday"`
	Hour       int   `json:"hour"`
	TeacherIDs []int `json:"teacherIds"`
}

// FreeCellsResponse lists free cells and their concrete compressed instants.
// Impossible is set when no single teacher covers the selection.
type FreeCellsResponse struct {
	Cells      []FreeCell `json:"cells"`
	Instants   []int64    `json:"instants"`
	Impossible bool       `json:"impossible"`
}

// QualifyingTeachersRequest resolves which teachers cover every selected
// instant and cell. Start and End place the cells and come from the query.
type QualifyingTeachersRequest struct {
	Selected  []int64        `json:"selected" validate:"omitempty,max=168,dive,gt=0"`
	Cells     []SelectedCell `json:"cells" validate:"omitempty,max=168,dive"`
	TeacherID *int           `json:"teacherId" validate:"omitempty,gt=0"`
	Start     time.Time      `json:"-" validate:"required_with=Cells"`
	End       time.Time      `json:"-" validate:"required_with=Cells"`
}

// QualifyingTeachersResponse is unrestricted when nothing was selected.
type QualifyingTeachersResponse struct {
	Restricted bool  `json:"restricted"`
	TeacherIDs []int `json:"teacherIds"`
	Impossible bool  `json:"impossible"`
}

// ExportRequest selects the grid to export and its file format.
type ExportRequest struct {
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required,gtefield=Start"`
	Recurring bool
	Format    string `validate:"required,oneof=csv xlsx pdf"`
}

package course

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrForbidden          = errors.New("you do not own this course")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrNotEnrolled        = errors.New("not enrolled in this course")
	ErrAlreadySubmitted   = errors.New("assignment already submitted")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

const (
	msgAssignmentPosted = `New assignment "%s" has been posted`
	msgSubmissionGraded = `Your assignment "%s" has been graded`
)

type Course struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    string    `json:"duration"`
	FileURL     string    `json:"file_url"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Summary is a course as listed to its teacher.
type Summary struct {
	Course
	EnrollmentCount int `json:"enrollment_count"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
	Progress   int       `json:"progress"`
}

// EnrolledCourse is an enrollment with its course, as listed to the student.
type EnrolledCourse struct {
	Enrollment
	Course Course `json:"course"`
}

// Student is an enrolled student, as listed to the teacher.
type Student struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
	Progress   int       `json:"progress"`
}

type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     null.Time `json:"due_date"`   // UTC
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Submission struct {
	ID           string      `json:"id"`
	AssignmentID string      `json:"assignment_id"`
	StudentID    string      `json:"student_id"`
	Content      string      `json:"content"`
	FileURL      string      `json:"file_url"`
	SubmittedAt  time.Time   `json:"submitted_at"` // UTC
	Grade        null.Int    `json:"grade"`
	Feedback     null.String `json:"feedback"`
	GradedAt     null.Time   `json:"graded_at"` // UTC
}

// SubmissionDetail is a submission with its student, as listed to the teacher.
type SubmissionDetail struct {
	Submission
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// Dashboard is what a student sees first.
type Dashboard struct {
	Enrollments   []EnrolledCourse            `json:"enrollments"`
	Notifications []notification.Notification `json:"notifications"`
}

// Inputs

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Duration    string `json:"duration" validate:"max=50"`
	FileURL     string `json:"file_url" validate:"omitempty,url"`
}

func (nc NewCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}

type NewAssignment struct {
	CourseID    string     `json:"-"`
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	DueDate     *time.Time `json:"due_date"`
}

func (na NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

type NewSubmission struct {
	AssignmentID string `json:"-"`
	Content      string `json:"content" validate:"required_without=FileURL,max=20000"`
	FileURL      string `json:"file_url" validate:"omitempty,url"`
}

func (ns NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

type Grade struct {
	Grade    int    `json:"grade" validate:"min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

func (g Grade) Validate(validate *validator.Validate) error {
	return validate.Struct(g)
}

type Repository interface {
	CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
	GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
	// QueryTeacherCourses lists the teacher's courses with their enrollment counts, newest first.
	QueryTeacherCourses(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]Summary, error)
	DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

	// CreateEnrollment returns ErrAlreadyEnrolled when the student is already enrolled.
	CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
	IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error)
	QueryStudentEnrollments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]EnrolledCourse, error)
	QueryCourseStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Student, error)

	CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
	GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
	// QueryAssignments lists the course's assignments, newest first.
	QueryAssignments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Assignment, error)
	DeleteAssignment(ctx context.Context, id string, exec ...core.DBExecutor) error

	// CreateSubmission returns ErrAlreadySubmitted when the student already submitted.
	CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
	GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
	// QuerySubmissions lists the assignment's submissions, latest first.
	QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]SubmissionDetail, error)
	GradeSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) error
}

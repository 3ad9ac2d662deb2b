package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/course"
)

type courseRow struct {
	ID          string    `db:"id"`
	TeacherID   string    `db:"teacher_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Duration    string    `db:"duration"`
	FileURL     string    `db:"file_url"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row courseRow) unwrap() course.Course {
	return course.Course{
		ID:          row.ID,
		TeacherID:   row.TeacherID,
		Title:       row.Title,
		Description: row.Description,
		Duration:    row.Duration,
		FileURL:     row.FileURL,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type courseSummaryRow struct {
	ID              string    `boil:"id"`
	TeacherID       string    `boil:"teacher_id"`
	Title           string    `boil:"title"`
	Description     string    `boil:"description"`
	Duration        string    `boil:"duration"`
	FileURL         string    `boil:"file_url"`
	CreatedAt       time.Time `boil:"created_at"`
	UpdatedAt       time.Time `boil:"updated_at"`
	EnrollmentCount int       `boil:"enrollment_count"`
}

type enrollmentRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	CourseID   string    `db:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at"`
	Progress   int       `db:"progress"`
}

func (row enrollmentRow) unwrap() course.Enrollment {
	return course.Enrollment{
		ID:         row.ID,
		StudentID:  row.StudentID,
		CourseID:   row.CourseID,
		EnrolledAt: row.EnrolledAt.UTC(),
		Progress:   row.Progress,
	}
}

type studentRow struct {
	ID         string    `boil:"id"`
	FullName   string    `boil:"full_name"`
	Email      string    `boil:"email"`
	EnrolledAt time.Time `boil:"enrolled_at"`
	Progress   int       `boil:"progress"`
}

type assignmentRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     null.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row assignmentRow) unwrap() course.Assignment {
	a := course.Assignment{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if a.DueDate.Valid {
		a.DueDate.Time = a.DueDate.Time.UTC()
	}
	return a
}

type submissionRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	Content      string      `db:"content"`
	FileURL      string      `db:"file_url"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	Grade        null.Int    `db:"grade"`
	Feedback     null.String `db:"feedback"`
	GradedAt     null.Time   `db:"graded_at"`
}

func (row submissionRow) unwrap() course.Submission {
	s := course.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Content:      row.Content,
		FileURL:      row.FileURL,
		SubmittedAt:  row.SubmittedAt.UTC(),
		Grade:        row.Grade,
		Feedback:     row.Feedback,
		GradedAt:     row.GradedAt,
	}
	if s.GradedAt.Valid {
		s.GradedAt.Time = s.GradedAt.Time.UTC()
	}
	return s
}

type submissionDetailRow struct {
	ID           string      `boil:"id"`
	AssignmentID string      `boil:"assignment_id"`
	StudentID    string      `boil:"student_id"`
	Content      string      `boil:"content"`
	FileURL      string      `boil:"file_url"`
	SubmittedAt  time.Time   `boil:"submitted_at"`
	Grade        null.Int    `boil:"grade"`
	Feedback     null.String `boil:"feedback"`
	GradedAt     null.Time   `boil:"graded_at"`
	StudentName  string      `boil:"student_name"`
	StudentEmail string      `boil:"student_email"`
}

const (
	courseCols     = `id, teacher_id, title, description, duration, file_url, created_at, updated_at`
	assignmentCols = `id, course_id, title, description, due_date, created_at`
	submissionCols = `id, assignment_id, student_id, content, file_url, submitted_at, grade, feedback, graded_at`
)

type courseRepository struct {
	repo
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repo{exec: exec}}
}

// Courses

func (r *courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO course (`+courseCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TeacherID, c.Title, c.Description, c.Duration, c.FileURL, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (r *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	var rows []courseRow
	if err := selectAll(ctx, r.getExec(exec), &rows, `SELECT `+courseCols+` FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	if len(rows) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *courseRepository) QueryTeacherCourses(ctx context.Context, teacherID string, exec ...core.DBExecutor) ([]course.Summary, error) {
	var rows []courseSummaryRow
	err := bindAll(ctx, r.getExec(exec), &rows, `
		SELECT c.id, c.teacher_id, c.title, c.description, c.duration, c.file_url, c.created_at, c.updated_at,
			COUNT(e.id) AS enrollment_count
		FROM course c
		LEFT JOIN enrollment e ON e.course_id = c.id
		WHERE c.teacher_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting teacher courses")
	}
	res := make([]course.Summary, 0, len(rows))
	for _, row := range rows {
		c := courseRow{
			ID:          row.ID,
			TeacherID:   row.TeacherID,
			Title:       row.Title,
			Description: row.Description,
			Duration:    row.Duration,
			FileURL:     row.FileURL,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
		res = append(res, course.Summary{Course: c.unwrap(), EnrollmentCount: row.EnrollmentCount})
	}
	return res, nil
}

func (r *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), course.ErrNotFound, `DELETE FROM course WHERE id = $1`, id)
}

// Enrollments

func (r *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO enrollment (id, student_id, course_id, enrolled_at, progress) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.StudentID, e.CourseID, e.EnrolledAt, e.Progress,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (r *courseRepository) IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := r.getExec(exec).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`, studentID, courseID,
	).Scan(&exists)
	if err != nil {
		if isMalformedValue(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

// QueryStudentEnrollments loads the enrollments, then their courses in one IN query.
func (r *courseRepository) QueryStudentEnrollments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]course.EnrolledCourse, error) {
	ex := r.getExec(exec)

	var eRows []enrollmentRow
	err := selectAll(ctx, ex, &eRows,
		`SELECT id, student_id, course_id, enrolled_at, progress FROM enrollment
		WHERE student_id = $1 ORDER BY enrolled_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	if len(eRows) == 0 {
		return []course.EnrolledCourse{}, nil
	}

	courseIDs := make([]string, 0, len(eRows))
	for _, row := range eRows {
		courseIDs = append(courseIDs, row.CourseID)
	}
	var cRows []courseRow
	if err = selectIn(ctx, ex, &cRows, `SELECT `+courseCols+` FROM course WHERE id IN (?)`, courseIDs); err != nil {
		return nil, errors.Wrap(err, "selecting enrolled courses")
	}
	courses := make(map[string]course.Course, len(cRows))
	for _, row := range cRows {
		courses[row.ID] = row.unwrap()
	}

	res := make([]course.EnrolledCourse, 0, len(eRows))
	for _, row := range eRows {
		res = append(res, course.EnrolledCourse{Enrollment: row.unwrap(), Course: courses[row.CourseID]})
	}
	return res, nil
}

func (r *courseRepository) QueryCourseStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Student, error) {
	var rows []studentRow
	err := bindAll(ctx, r.getExec(exec), &rows, `
		SELECT p.id, p.full_name, p.email, e.enrolled_at, e.progress
		FROM enrollment e
		JOIN profile p ON p.id = e.student_id
		WHERE e.course_id = $1
		ORDER BY e.enrolled_at DESC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting course students")
	}
	res := make([]course.Student, 0, len(rows))
	for _, row := range rows {
		res = append(res, course.Student{
			ID:         row.ID,
			FullName:   row.FullName,
			Email:      row.Email,
			EnrolledAt: row.EnrolledAt.UTC(),
			Progress:   row.Progress,
		})
	}
	return res, nil
}

// Assignments

func (r *courseRepository) CreateAssignment(ctx context.Context, a course.Assignment, exec ...core.DBExecutor) (course.Assignment, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO assignment (`+assignmentCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CourseID, a.Title, a.Description, a.DueDate, a.CreatedAt,
	)
	if err != nil {
		return course.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (r *courseRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (course.Assignment, error) {
	var rows []assignmentRow
	if err := selectAll(ctx, r.getExec(exec), &rows, `SELECT `+assignmentCols+` FROM assignment WHERE id = $1`, id); err != nil {
		return course.Assignment{}, errors.Wrap(err, "selecting assignment")
	}
	if len(rows) == 0 {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *courseRepository) QueryAssignments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Assignment, error) {
	var rows []assignmentRow
	err := selectAll(ctx, r.getExec(exec), &rows,
		`SELECT `+assignmentCols+` FROM assignment WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	res := make([]course.Assignment, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.unwrap())
	}
	return res, nil
}

func (r *courseRepository) DeleteAssignment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), course.ErrAssignmentNotFound, `DELETE FROM assignment WHERE id = $1`, id)
}

// Submissions

func (r *courseRepository) CreateSubmission(ctx context.Context, s course.Submission, exec ...core.DBExecutor) (course.Submission, error) {
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO submission (`+submissionCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.AssignmentID, s.StudentID, s.Content, s.FileURL, s.SubmittedAt, s.Grade, s.Feedback, s.GradedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Submission{}, course.ErrAlreadySubmitted
		}
		return course.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (r *courseRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (course.Submission, error) {
	var rows []submissionRow
	if err := selectAll(ctx, r.getExec(exec), &rows, `SELECT `+submissionCols+` FROM submission WHERE id = $1`, id); err != nil {
		return course.Submission{}, errors.Wrap(err, "selecting submission")
	}
	if len(rows) == 0 {
		return course.Submission{}, course.ErrSubmissionNotFound
	}
	return rows[0].unwrap(), nil
}

func (r *courseRepository) QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]course.SubmissionDetail, error) {
	var rows []submissionDetailRow
	err := bindAll(ctx, r.getExec(exec), &rows, `
		SELECT s.id, s.assignment_id, s.student_id, s.content, s.file_url, s.submitted_at, s.grade, s.feedback,
			s.graded_at, p.full_name AS student_name, p.email AS student_email
		FROM submission s
		JOIN profile p ON p.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY s.submitted_at DESC`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	res := make([]course.SubmissionDetail, 0, len(rows))
	for _, row := range rows {
		res = append(res, course.SubmissionDetail{
			Submission: submissionRow{
				ID:           row.ID,
				AssignmentID: row.AssignmentID,
				StudentID:    row.StudentID,
				Content:      row.Content,
				FileURL:      row.FileURL,
				SubmittedAt:  row.SubmittedAt,
				Grade:        row.Grade,
				Feedback:     row.Feedback,
				GradedAt:     row.GradedAt,
			}.unwrap(),
			StudentName:  row.StudentName,
			StudentEmail: row.StudentEmail,
		})
	}
	return res, nil
}

func (r *courseRepository) GradeSubmission(ctx context.Context, s course.Submission, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), course.ErrSubmissionNotFound,
		`UPDATE submission SET grade = $2, feedback = $3, graded_at = $4 WHERE id = $1`,
		s.ID, s.Grade, s.Feedback, s.GradedAt)
}

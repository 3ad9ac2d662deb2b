package inmemdb

import (
	"context"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// Courses

func (r *courseRepository) CreateCourse(_ context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	put(exec, r.db.courses, c.ID, c)
	r.db.stamp(c.ID)
	return c, nil
}

func (r *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if c, ok := r.db.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (r *courseRepository) QueryTeacherCourses(_ context.Context, teacherID string, _ ...core.DBExecutor) ([]course.Summary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range r.db.enrollments {
		counts[e.CourseID]++
	}
	ids := make([]string, 0)
	for id, c := range r.db.courses {
		if c.TeacherID == teacherID {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.courses[id].CreatedAt.UnixNano() })

	res := make([]course.Summary, 0, len(ids))
	for _, id := range ids {
		res = append(res, course.Summary{Course: r.db.courses[id], EnrollmentCount: counts[id]})
	}
	return res, nil
}

// DeleteCourse cascades to the course's enrollments, assignments and submissions.
func (r *courseRepository) DeleteCourse(_ context.Context, id string, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	del(exec, r.db.courses, id)
	for eid, e := range r.db.enrollments {
		if e.CourseID == id {
			del(exec, r.db.enrollments, eid)
		}
	}
	for aid, a := range r.db.assignments {
		if a.CourseID == id {
			r.deleteAssignment(aid, exec)
		}
	}
	return nil
}

// Enrollments

func (r *courseRepository) CreateEnrollment(_ context.Context, e course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, other := range r.db.enrollments {
		if other.StudentID == e.StudentID && other.CourseID == e.CourseID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	put(exec, r.db.enrollments, e.ID, e)
	r.db.stamp(e.ID)
	return e, nil
}

func (r *courseRepository) IsEnrolled(_ context.Context, studentID, courseID string, _ ...core.DBExecutor) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, e := range r.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *courseRepository) enrollmentsWhere(keep func(course.Enrollment) bool) []course.Enrollment {
	ids := make([]string, 0)
	for id, e := range r.db.enrollments {
		if keep(e) {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.enrollments[id].EnrolledAt.UnixNano() })

	res := make([]course.Enrollment, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.db.enrollments[id])
	}
	return res
}

func (r *courseRepository) QueryStudentEnrollments(_ context.Context, studentID string, _ ...core.DBExecutor) ([]course.EnrolledCourse, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	es := r.enrollmentsWhere(func(e course.Enrollment) bool { return e.StudentID == studentID })
	res := make([]course.EnrolledCourse, 0, len(es))
	for _, e := range es {
		res = append(res, course.EnrolledCourse{Enrollment: e, Course: r.db.courses[e.CourseID]})
	}
	return res, nil
}

func (r *courseRepository) QueryCourseStudents(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	es := r.enrollmentsWhere(func(e course.Enrollment) bool { return e.CourseID == courseID })
	res := make([]course.Student, 0, len(es))
	for _, e := range es {
		p, ok := r.db.profiles[e.StudentID]
		if !ok {
			continue
		}
		res = append(res, course.Student{
			ID:         p.ID,
			FullName:   p.FullName,
			Email:      p.Email,
			EnrolledAt: e.EnrolledAt,
			Progress:   e.Progress,
		})
	}
	return res, nil
}

// Assignments

func (r *courseRepository) CreateAssignment(_ context.Context, a course.Assignment, exec ...core.DBExecutor) (course.Assignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("CreateAssignment"); err != nil {
		return course.Assignment{}, err
	}
	put(exec, r.db.assignments, a.ID, a)
	r.db.stamp(a.ID)
	return a, nil
}

func (r *courseRepository) GetAssignment(_ context.Context, id string, _ ...core.DBExecutor) (course.Assignment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if a, ok := r.db.assignments[id]; ok {
		return a, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (r *courseRepository) QueryAssignments(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Assignment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, a := range r.db.assignments {
		if a.CourseID == courseID {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.assignments[id].CreatedAt.UnixNano() })

	res := make([]course.Assignment, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.db.assignments[id])
	}
	return res, nil
}

// deleteAssignment removes the assignment and its submissions. Callers hold db.mu.
func (r *courseRepository) deleteAssignment(id string, exec []core.DBExecutor) {
	del(exec, r.db.assignments, id)
	for sid, s := range r.db.submissions {
		if s.AssignmentID == id {
			del(exec, r.db.submissions, sid)
		}
	}
}

func (r *courseRepository) DeleteAssignment(_ context.Context, id string, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.assignments[id]; !ok {
		return course.ErrAssignmentNotFound
	}
	r.deleteAssignment(id, exec)
	return nil
}

// Submissions

func (r *courseRepository) CreateSubmission(_ context.Context, s course.Submission, exec ...core.DBExecutor) (course.Submission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, other := range r.db.submissions {
		if other.AssignmentID == s.AssignmentID && other.StudentID == s.StudentID {
			return course.Submission{}, course.ErrAlreadySubmitted
		}
	}
	put(exec, r.db.submissions, s.ID, s)
	r.db.stamp(s.ID)
	return s, nil
}

func (r *courseRepository) GetSubmission(_ context.Context, id string, _ ...core.DBExecutor) (course.Submission, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.submissions[id]; ok {
		return s, nil
	}
	return course.Submission{}, course.ErrSubmissionNotFound
}

func (r *courseRepository) QuerySubmissions(_ context.Context, assignmentID string, _ ...core.DBExecutor) ([]course.SubmissionDetail, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, s := range r.db.submissions {
		if s.AssignmentID == assignmentID {
			ids = append(ids, id)
		}
	}
	r.db.newestFirst(ids, func(id string) int64 { return r.db.submissions[id].SubmittedAt.UnixNano() })

	res := make([]course.SubmissionDetail, 0, len(ids))
	for _, id := range ids {
		s := r.db.submissions[id]
		p := r.db.profiles[s.StudentID]
		res = append(res, course.SubmissionDetail{Submission: s, StudentName: p.FullName, StudentEmail: p.Email})
	}
	return res, nil
}

func (r *courseRepository) GradeSubmission(_ context.Context, s course.Submission, exec ...core.DBExecutor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.fail("GradeSubmission"); err != nil {
		return err
	}
	orig, ok := r.db.submissions[s.ID]
	if !ok {
		return course.ErrSubmissionNotFound
	}
	orig.Grade, orig.Feedback, orig.GradedAt = s.Grade, s.Feedback, s.GradedAt
	put(exec, r.db.submissions, s.ID, orig)
	return nil
}

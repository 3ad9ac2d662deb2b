package course

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

type UnreadLister interface {
	Unread(ctx context.Context, userID string, limit int) ([]notification.Notification, error)
}

type Service struct {
	repo          Repository
	profiles      profile.Repository
	notifier      notification.Sink
	notifications UnreadLister
	tx            core.Transactor
	mailSvc       core.EmailService
	logger        core.Logger
}

func NewService(
	repo Repository,
	profiles profile.Repository,
	notifSvc *notification.Service,
	tx core.Transactor,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:          repo,
		profiles:      profiles,
		notifier:      notifSvc,
		notifications: notifSvc,
		tx:            tx,
		mailSvc:       mailSvc,
		logger:        logger,
	}
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, teacherID string, nc NewCourse) (Course, error) {
	now := core.NowFunc()
	c, err := svc.repo.CreateCourse(ctx, Course{
		ID:          uuid.New().String(),
		TeacherID:   teacherID,
		Title:       core.CleanString(nc.Title),
		Description: core.CleanString(nc.Description),
		Duration:    core.CleanString(nc.Duration),
		FileURL:     core.CleanString(nc.FileURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (svc *Service) ListTeacherCourses(ctx context.Context, teacherID string) ([]Summary, error) {
	cs, err := svc.repo.QueryTeacherCourses(ctx, teacherID)
	if err != nil {
		return nil, core.NewLookupError("courses", err)
	}
	return cs, nil
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// ownCourse returns the course when teacherID teaches it.
func (svc *Service) ownCourse(ctx context.Context, teacherID, courseID string, exec ...core.DBExecutor) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, courseID, exec...)
	if err != nil {
		return Course{}, err
	}
	if c.TeacherID != teacherID {
		return Course{}, ErrForbidden
	}
	return c, nil
}

func (svc *Service) DeleteCourse(ctx context.Context, teacherID, id string) error {
	if _, err := svc.ownCourse(ctx, teacherID, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// Enrollments

func (svc *Service) Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: core.NowFunc(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return e, nil
}

func (svc *Service) ListEnrollments(ctx context.Context, studentID string) ([]EnrolledCourse, error) {
	es, err := svc.repo.QueryStudentEnrollments(ctx, studentID)
	if err != nil {
		return nil, core.NewLookupError("enrollments", err)
	}
	return es, nil
}

func (svc *Service) ListCourseStudents(ctx context.Context, courseID string) ([]Student, error) {
	ss, err := svc.repo.QueryCourseStudents(ctx, courseID)
	if err != nil {
		return nil, core.NewLookupError("course students", err)
	}
	return ss, nil
}

// Assignments

// CreateAssignment posts the assignment and notifies every enrolled student, in one transaction.
func (svc *Service) CreateAssignment(ctx context.Context, teacherID string, na NewAssignment) (Assignment, error) {
	var a Assignment
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.ownCourse(ctx, teacherID, na.CourseID, exec); err != nil {
			return err
		}

		var err error
		a, err = svc.repo.CreateAssignment(ctx, Assignment{
			ID:          uuid.New().String(),
			CourseID:    na.CourseID,
			Title:       core.CleanString(na.Title),
			Description: core.CleanString(na.Description),
			DueDate:     null.TimeFromPtr(na.DueDate),
			CreatedAt:   core.NowFunc(),
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating assignment")
		}

		students, err := svc.repo.QueryCourseStudents(ctx, na.CourseID, exec)
		if err != nil {
			return errors.Wrap(err, "querying course students")
		}
		ns := make([]notification.Notification, 0, len(students))
		for _, s := range students {
			ns = append(ns, notification.Notification{
				UserID:    s.ID,
				Message:   fmt.Sprintf(msgAssignmentPosted, a.Title),
				Type:      notification.TypeAssignment,
				RelatedID: na.CourseID,
			})
		}
		return svc.notifier.NotifyMany(ctx, ns, exec)
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) ListAssignments(ctx context.Context, courseID string) ([]Assignment, error) {
	as, err := svc.repo.QueryAssignments(ctx, courseID)
	if err != nil {
		return nil, core.NewLookupError("assignments", err)
	}
	return as, nil
}

func (svc *Service) DeleteAssignment(ctx context.Context, teacherID, id string) error {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if _, err = svc.ownCourse(ctx, teacherID, a.CourseID); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// Submissions

func (svc *Service) Submit(ctx context.Context, studentID string, ns NewSubmission) (Submission, error) {
	a, err := svc.repo.GetAssignment(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	enrolled, err := svc.repo.IsEnrolled(ctx, studentID, a.CourseID)
	if err != nil {
		return Submission{}, core.NewLookupError("enrollment", err)
	}
	if !enrolled {
		return Submission{}, ErrNotEnrolled
	}

	s, err := svc.repo.CreateSubmission(ctx, Submission{
		ID:           uuid.New().String(),
		AssignmentID: a.ID,
		StudentID:    studentID,
		Content:      core.CleanString(ns.Content),
		FileURL:      core.CleanString(ns.FileURL),
		SubmittedAt:  core.NowFunc(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Submission{}, core.NewValidationError(err, core.FieldError{Field: "assignment_id", Error: err.Error()})
		}
		return Submission{}, errors.Wrap(err, "creating submission")
	}
	return s, nil
}

func (svc *Service) ListSubmissions(ctx context.Context, teacherID, assignmentID string) ([]SubmissionDetail, error) {
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err = svc.ownCourse(ctx, teacherID, a.CourseID); err != nil {
		return nil, err
	}
	ss, err := svc.repo.QuerySubmissions(ctx, assignmentID)
	if err != nil {
		return nil, core.NewLookupError("submissions", err)
	}
	return ss, nil
}

// Grade records the grade and notifies the student, in one transaction. The student is also
// e-mailed once committed.
func (svc *Service) Grade(ctx context.Context, teacherID, submissionID string, g Grade) (Submission, error) {
	var (
		s   Submission
		a   Assignment
		msg string
	)
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if s, err = svc.repo.GetSubmission(ctx, submissionID, exec); err != nil {
			return err
		}
		if a, err = svc.repo.GetAssignment(ctx, s.AssignmentID, exec); err != nil {
			return err
		}
		if _, err = svc.ownCourse(ctx, teacherID, a.CourseID, exec); err != nil {
			return err
		}

		s.Grade = null.IntFrom(g.Grade)
		s.Feedback = null.NewString(core.CleanString(g.Feedback), g.Feedback != "")
		s.GradedAt = null.TimeFrom(core.NowFunc())
		if err = svc.repo.GradeSubmission(ctx, s, exec); err != nil {
			return errors.Wrap(err, "grading submission")
		}

		msg = fmt.Sprintf(msgSubmissionGraded, a.Title)
		_, err = svc.notifier.Notify(ctx, notification.Notification{
			UserID:    s.StudentID,
			Message:   msg,
			Type:      notification.TypeGrade,
			RelatedID: s.ID,
		}, exec)
		return err
	})
	if err != nil {
		return Submission{}, err
	}

	svc.sendGradedEmail(ctx, s, msg)
	return s, nil
}

func (svc *Service) sendGradedEmail(ctx context.Context, s Submission, msg string) {
	if svc.mailSvc == nil {
		return
	}
	p, err := svc.profiles.GetProfile(ctx, s.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("graded email for submission %s: %v", s.ID, err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.FullName, Address: p.Email}},
		Subject:      msg,
		TemplateName: "graded",
		TemplateData: map[string]interface{}{
			"Name":     p.FullName,
			"Message":  msg,
			"Grade":    s.Grade.Int,
			"Feedback": s.Feedback.String,
		},
	})
}

// StudentDashboard returns the student's courses and latest unread notifications.
func (svc *Service) StudentDashboard(ctx context.Context, studentID string) (Dashboard, error) {
	es, err := svc.ListEnrollments(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}
	ns, err := svc.notifications.Unread(ctx, studentID, notification.DefaultUnreadLimit)
	if err != nil {
		return Dashboard{}, err
	}
	if es == nil {
		es = []EnrolledCourse{}
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return Dashboard{Enrollments: es, Notifications: ns}, nil
}

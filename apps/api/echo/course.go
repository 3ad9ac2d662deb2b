package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}
	staff, student := staffMiddleware(), studentMiddleware()

	cg := g.Group("/courses", authed...)
	cg.POST("", api.createCourse, staff)
	cg.GET("", api.queryCourses, staff)
	cg.GET("/:id", api.retrieveCourse)
	cg.DELETE("/:id", api.destroyCourse, staff)
	cg.GET("/:id/students", api.queryStudents, staff)
	cg.POST("/:id/assignments", api.createAssignment, staff)
	cg.GET("/:id/assignments", api.queryAssignments)
	cg.POST("/:id/enroll", api.enroll, student)

	ag := g.Group("/assignments", authed...)
	ag.DELETE("/:id", api.destroyAssignment, staff)
	ag.GET("/:id/submissions", api.querySubmissions, staff)
	ag.POST("/:id/submissions", api.submit, student)

	g.POST("/submissions/:id/grade", api.grade, chain(authed, staff)...)
	g.GET("/student/dashboard", api.dashboard, chain(authed, student)...)
}

// Handlers

func (api *courseApi) createCourse(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), teacher.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) queryCourses(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	cs, err := api.svc.ListTeacherCourses(ctx.Request().Context(), teacher.ID)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if cs == nil {
		cs = []course.Summary{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *courseApi) retrieveCourse(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroyCourse(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), teacher.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	c, err := api.svc.GetCourse(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	if c.TeacherID != teacher.ID {
		return course.ErrForbidden
	}

	ss, err := api.svc.ListCourseStudents(reqCtx, c.ID)
	if err != nil {
		return errors.Wrap(err, "listing course students")
	}
	if ss == nil {
		ss = []course.Student{}
	}
	return ctx.JSON(http.StatusOK, ss)
}

func (api *courseApi) createAssignment(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	var data course.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	data.CourseID = ctx.Param("id")
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.CreateAssignment(ctx.Request().Context(), teacher.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *courseApi) queryAssignments(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	c, err := api.svc.GetCourse(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	as, err := api.svc.ListAssignments(reqCtx, c.ID)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if as == nil {
		as = []course.Assignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	student, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Enroll(ctx.Request().Context(), student.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) destroyAssignment(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAssignment(ctx.Request().Context(), teacher.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) querySubmissions(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), teacher.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if subs == nil {
		subs = []course.SubmissionDetail{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *courseApi) submit(ctx echo.Context) error {
	student, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	var data course.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	data.AssignmentID = ctx.Param("id")
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), student.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *courseApi) grade(ctx echo.Context) error {
	teacher, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	var data course.Grade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), teacher.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *courseApi) dashboard(ctx echo.Context) error {
	student, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.StudentDashboard(ctx.Request().Context(), student.ID)
	if err != nil {
		return errors.Wrap(err, "loading dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

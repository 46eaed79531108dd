package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/blob/fsblob"
	"github.com/trezcool/darasa/storage/database"
	"github.com/trezcool/darasa/storage/database/dummydb"
	"github.com/trezcool/darasa/storage/database/sqlxdb"
)

type repositories struct {
	user       user.Repository
	course     course.Repository
	enrollment enrollment.Repository
	assignment assignment.Repository
	submission submission.Repository
	access     access.Repository

	close func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if core.Conf.RollbarToken != "" {
		rollbar := logsvc.NewRollbarLogger(std, core.Conf)
		rollbar.Enable(!core.Conf.Debug)
		logger = rollbar
	} else {
		logger = core.StdLogger{Std: std}
	}

	repos, err := setUpRepos()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	blobs, err := fsblob.NewStore(core.Conf.Storage.MediaRoot)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob store: %v", err), err)
	}

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	acc := access.NewResolver(repos.access)
	usrSvc := user.NewService(repos.user)
	crsSvc := course.NewService(repos.course, acc)
	enrSvc := enrollment.NewService(repos.enrollment, acc, mailSvc)
	asgSvc := assignment.NewService(repos.assignment, acc)
	subSvc := submission.NewService(repos.submission, acc, blobs, logger)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(&echoapi.Options{
		Address:       core.Conf.Server.Addr(),
		Logger:        logger,
		UserSvc:       usrSvc,
		CourseSvc:     crsSvc,
		EnrollmentSvc: enrSvc,
		AssignmentSvc: asgSvc,
		SubmissionSvc: subSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-server.ShutdownSignal():
		logger.Info("unrecoverable error: Start shutdown...")
	case sig := <-quit:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpRepos() (*repositories, error) {
	if core.Conf.Database.Engine == "postgres" {
		if err := database.CreateIfNotExist(core.Conf); err != nil {
			return nil, err
		}
		db, err := database.Open(core.Conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return &repositories{
			user:       sqlxdb.NewUserRepository(db),
			course:     sqlxdb.NewCourseRepository(db),
			enrollment: sqlxdb.NewEnrollmentRepository(db),
			assignment: sqlxdb.NewAssignmentRepository(db),
			submission: sqlxdb.NewSubmissionRepository(db),
			access:     sqlxdb.NewAccessRepository(db),
			close:      db.Close,
		}, nil
	}

	db, err := dummydb.Open()
	if err != nil {
		return nil, err
	}
	return &repositories{
		user:       dummydb.NewUserRepository(db),
		course:     dummydb.NewCourseRepository(db),
		enrollment: dummydb.NewEnrollmentRepository(db),
		assignment: dummydb.NewAssignmentRepository(db),
		submission: dummydb.NewSubmissionRepository(db),
		access:     dummydb.NewAccessRepository(db),
		close:      db.Close,
	}, nil
}

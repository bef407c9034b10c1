package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/config"
	"asistencia/internal/logging"
	"asistencia/internal/persistence"
	"asistencia/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer backend.Close()

	gw := persistence.New(backend, cfg.BackupIdentifier, logger.Named("persistence"), nil)
	snap, err := gw.Load(ctx)
	if err != nil {
		logger.Fatal("load state", zap.Error(err))
	}
	svc := attendance.NewService(attendance.State{
		Courses:  snap.Courses,
		Settings: attendance.Settings{TeacherName: snap.TeacherName, SyncURL: snap.SyncURL},
	}, gw, attendance.WithLogger(logger.Named("attendance")))

	cli := newCommandLine(svc, gw, os.Stdout)
	if err := cli.run(os.Args); err != nil {
		if err == errHelp {
			os.Exit(2)
		}
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

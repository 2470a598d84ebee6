// Package runhistory persists the outcome of each debugloop.Debug session
// (root process, exit code, crash count, and the dumps captured along the
// way) to PostgreSQL using jackc/pgx/v5, with schema migrations applied
// through pressly/goose/v3 via integration/database/pg.
//
// # Usage
//
//	pool, err := pg.Connect(ctx, pgCfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := pg.Migrate(ctx, pool, pgCfg, logger); err != nil {
//		log.Fatal(err)
//	}
//
//	repo := runhistory.NewRepository(pool)
//	run := runhistory.Run{
//		ID:          uuid.New(),
//		RootPID:     uint32(cmd.Process.Pid),
//		CommandLine: strings.Join(cmd.Args, " "),
//		StartedAt:   time.Now(),
//		Status:      runhistory.StatusRunning,
//	}
//	if err := repo.CreateRun(ctx, run); err != nil {
//		log.Fatal(err)
//	}
//
// Every write accepts a context that may carry a transaction attached with
// pg.WithTx, so a crash-dump write and its runhistory.Dump row can commit
// atomically.
package runhistory

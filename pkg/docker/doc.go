// Package docker runs disposable PostgreSQL servers in Docker for
// integration tests and local experiments with migrations.
//
// Containers are managed through testcontainers-go, so they are reaped
// automatically when the owning process exits.
//
//	container := docker.NewWithOptions(docker.DockerOptions{Version: "16"})
//	if err := container.Start(ctx); err != nil {
//		return err
//	}
//	defer container.Stop(ctx)
//
//	dsn, err := container.GetDSN(ctx)
//	if err != nil {
//		return err
//	}
//
//	client, err := database.NewClient(ctx, database.Options{DSN: dsn})
package docker

package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lutefd/pongboard/internal/config"
	"github.com/lutefd/pongboard/internal/logging"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "pongboard.yaml", "path to the YAML config file")
	dir := flag.String("dir", "migrations", "migration directory")
	down := flag.Bool("down", false, "apply .down.sql files in reverse order")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.Driver != "postgres" {
		logger.Info("sqlite applies its schema on open; nothing to migrate")
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	suffix := ".up.sql"
	if *down {
		suffix = ".down.sql"
	}
	files, err := listMigrations(*dir, suffix)
	if err != nil {
		logger.Fatal("list migrations", zap.Error(err))
	}
	if *down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("read migration", zap.String("file", file), zap.Error(err))
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			logger.Fatal("apply migration", zap.String("file", file), zap.Error(err))
		}
		logger.Info("applied", zap.String("file", file))
	}
}

func listMigrations(root, suffix string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postsapi/app/config"
	"postsapi/app/repositories"
)

// stdin is read for confirmations; replaced in tests.
var stdin io.Reader = os.Stdin

// HandleCommand runs a maintenance subcommand against the Badger store and
// returns the process exit code.
func HandleCommand(args []string, cfg config.Config) int {
	if len(args) < 1 {
		printDBHelp()
		return 1
	}

	cmd := args[0]
	if cmd == "help" {
		printDBHelp()
		return 0
	}
	if cfg.Storage != config.StorageBadger || cfg.BadgerInMemory {
		fmt.Println("Error: db commands need on-disk badger storage")
		return 1
	}

	dbPath := cfg.BadgerPath
	switch cmd {
	case "init":
		return initDb(dbPath)
	case "clean":
		return clean(dbPath)
	case "backup":
		dir := filepath.Join(filepath.Dir(dbPath), "backups")
		if len(args) > 1 {
			dir = args[1]
		}
		return backup(dbPath, dir)
	case "restore":
		if len(args) < 2 {
			fmt.Println("Error: backup file path required for restore")
			return 1
		}
		return restore(dbPath, args[1])
	default:
		fmt.Printf("Unknown db command: %s\n\n", cmd)
		printDBHelp()
		return 1
	}
}

// printDBHelp prints help for db subcommands.
func printDBHelp() {
	helpText := `Usage: postsapi db <command>

Commands:
  init                            Initialize a new empty database
  clean                           Remove the database
  backup [dir]                    Create a backup of the database
  restore <file>                  Restore the database from a backup
  help                            Display this help message
`
	fmt.Println(helpText)
}

func confirm(prompt string) bool {
	fmt.Print(prompt + " [y/N] ")
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// initDb initializes a new empty database.
func initDb(dbPath string) int {
	if exists(dbPath) {
		fmt.Println("Database already exists. Use 'clean' first if you want to reinitialize.")
		return 1
	}

	db, err := repositories.OpenBadger(dbPath, false)
	if err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		return 1
	}
	defer db.Close()

	fmt.Println("Database initialized successfully")
	return 0
}

// clean removes the database.
func clean(dbPath string) int {
	if !exists(dbPath) {
		fmt.Println("Database is already clean (does not exist)")
		return 0
	}

	if !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Println("Operation cancelled")
		return 1
	}

	if err := os.RemoveAll(dbPath); err != nil {
		fmt.Printf("Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Println("Database cleaned successfully")
	return 0
}

// backup writes a full backup of the database into backupDir.
func backup(dbPath, backupDir string) int {
	if !exists(dbPath) {
		fmt.Println("No database exists to backup")
		return 1
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		fmt.Printf("Failed to create backup directory: %v\n", err)
		return 1
	}

	db, err := repositories.OpenBadger(dbPath, false)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Printf("Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		fmt.Printf("Failed to backup database: %v\n", err)
		return 1
	}

	fmt.Printf("Database backed up successfully to %s\n", backupFile)
	return 0
}

// restore replaces the database with the contents of backupFile.
func restore(dbPath, backupFile string) int {
	fi, err := os.Stat(backupFile)
	if err != nil {
		fmt.Printf("Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Printf("Backup file is empty: %s\n", backupFile)
		return 1
	}

	if exists(dbPath) {
		if !confirm("Existing database found. Do you want to replace it?") {
			fmt.Println("Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(dbPath); err != nil {
			fmt.Printf("Failed to remove existing database: %v\n", err)
			return 1
		}
	}

	db, err := repositories.OpenBadger(dbPath, false)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Printf("Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic occurred during restore: %v", r)
			}
		}()
		return db.Load(f, 4)
	}()
	if err != nil {
		fmt.Printf("Failed to restore database: %v\n", err)
		return 1
	}

	fmt.Println("Database restored successfully")
	return 0
}

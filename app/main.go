package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/taskvault/taskvault/app/manager"
	"github.com/taskvault/taskvault/app/store"
	"github.com/taskvault/taskvault/app/task"
)

const defaultLockTimeout = 5 * time.Second

var opts struct {
	Config      string        `short:"c" long:"config" env:"TASKVAULT_CONFIG" description:"optional yaml config file"`
	StoreDir    string        `long:"store-dir" env:"TASKVAULT_STORE_DIR" description:"override storage directory"`
	LockTimeout time.Duration `long:"lock-timeout" env:"TASKVAULT_LOCK_TIMEOUT" default:"5s" description:"how long to wait for the store lock"`

	Task struct {
		Priority   string        `long:"priority" env:"PRIORITY" default:"MEDIUM" description:"task priority (HIGH, MEDIUM, LOW)"`
		Due        string        `long:"due" env:"DUE" description:"due date, YYYY-MM-DD or RFC3339"`
		Recurrence string        `long:"recurrence" env:"RECURRENCE" description:"repeat tag (daily, weekly, monthly, yearly)"`
		Tags       []string      `long:"tag" env:"TAGS" env-delim:"," description:"category tag, can be repeated"`
		Reminder   time.Duration `long:"reminder" env:"REMINDER" description:"reminder offset before the due date, e.g. 30m"`
		Activity   bool          `long:"activity" env:"ACTIVITY" description:"ad-hoc activity without a schedule"`
		Pending    bool          `long:"pending" env:"PENDING" description:"list pending tasks only"`
	} `group:"task" namespace:"task" env-namespace:"TASKVAULT_TASK"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging"`
		Filename        string `long:"filename" env:"FILE" description:"log to file instead of stdout"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max size of log file in megabytes"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated log files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max age of rotated log files in days"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"enable compression of rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"TASKVAULT_LOG"`

	Dbg bool `long:"dbg" env:"TASKVAULT_DEBUG" description:"debug mode"`
}

var revision = "unknown"

func main() {
	fmt.Printf("taskvault %s\n", revision)

	p := flags.NewParser(&opts, flags.Default)
	p.Usage = "[OPTIONS] command [args]\n\ncommands: add, list, complete, reopen, delete, priority, schema"
	args, err := p.Parse()
	if err != nil {
		os.Exit(2)
	}

	if opts.Config != "" {
		if err := applyConfig(opts.Config, flagIsSet(p, "lock-timeout")); err != nil {
			fmt.Fprintf(os.Stderr, "can't load config %s: %v\n", opts.Config, err)
			os.Exit(2)
		}
	}
	setupLogs()

	if err := run(args); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

// run wires the store lifecycle around a single command: resolve paths,
// acquire the lock, load (possibly recovering), execute, shut down.
func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given, expected one of add, list, complete, reopen, delete, priority, schema")
	}

	if args[0] == "schema" { // schema dump doesn't need the store at all
		fmt.Print(string(task.SchemaJSON()))
		return nil
	}

	paths, err := makePaths()
	if err != nil {
		return err
	}

	st := store.NewStore(paths)
	if err := st.Initialize(opts.LockTimeout); err != nil {
		return err
	}
	defer st.Shutdown()

	res := st.Load()
	if res.Notice != "" {
		fmt.Println(res.Notice)
	}

	return command(manager.New(res.Tasks, st), args[0], args[1:])
}

// makePaths resolves the store directory, honoring the override
func makePaths() (store.Paths, error) {
	if opts.StoreDir != "" {
		return store.PathsIn(opts.StoreDir)
	}
	return store.ResolvePaths("taskvault")
}

func command(mgr *manager.Manager, cmd string, args []string) error {
	switch cmd {
	case "add":
		return addCommand(mgr, args)
	case "list":
		for _, t := range mgr.List(opts.Task.Pending) {
			printTask(t)
		}
		return nil
	case "complete":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		t, err := mgr.Complete(id, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("completed task %d %q\n", t.ID, t.Title)
		return nil
	case "reopen":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		t, err := mgr.Reopen(id)
		if err != nil {
			return err
		}
		fmt.Printf("reopened task %d %q\n", t.ID, t.Title)
		return nil
	case "delete":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		if err := mgr.Delete(id); err != nil {
			return err
		}
		fmt.Printf("deleted task %d\n", id)
		return nil
	case "priority":
		if len(args) != 2 {
			return fmt.Errorf("priority expects id and value, e.g. priority 1 HIGH")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad task id %q", args[0])
		}
		pr, err := task.ParsePriority(args[1])
		if err != nil {
			return err
		}
		t, err := mgr.SetPriority(id, pr)
		if err != nil {
			return err
		}
		fmt.Printf("task %d priority set to %s\n", t.ID, t.Priority)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func addCommand(mgr *manager.Manager, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("add expects a title")
	}

	t := task.Task{Title: args[0], Tags: opts.Task.Tags}
	if len(args) > 1 {
		t.Description = strings.Join(args[1:], " ")
	}

	pr, err := task.ParsePriority(opts.Task.Priority)
	if err != nil {
		return err
	}
	t.Priority = pr

	rec, err := task.ParseRecurrence(opts.Task.Recurrence)
	if err != nil {
		return err
	}
	t.Recurrence = rec

	t.Kind = task.KindScheduled
	if opts.Task.Activity {
		t.Kind = task.KindActivity
	}

	if opts.Task.Due != "" {
		due, err := parseDue(opts.Task.Due)
		if err != nil {
			return err
		}
		t.Due = &due
	}
	if opts.Task.Reminder > 0 {
		if t.Due == nil {
			return fmt.Errorf("reminder needs a due date")
		}
		t.ReminderOffset = task.Offset(opts.Task.Reminder)
	}

	added, err := mgr.Add(t)
	if err != nil {
		return err
	}
	fmt.Printf("added task %d %q\n", added.ID, added.Title)
	return nil
}

func parseID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a single task id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("bad task id %q", args[0])
	}
	return id, nil
}

// parseDue accepts a plain date or a full RFC3339 timestamp
func parseDue(s string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad due date %q, expected YYYY-MM-DD or RFC3339", s)
	}
	return ts.UTC(), nil
}

func printTask(t task.Task) {
	mark := " "
	if t.Status == task.StatusComplete {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %4d %-8s %s", mark, t.ID, t.Priority, t.Title)
	if t.Due != nil {
		line += fmt.Sprintf(" (due %s)", t.Due.Format("2006-01-02"))
	}
	if t.Recurrence != task.RecurrenceNone {
		line += fmt.Sprintf(" [%s]", t.Recurrence)
	}
	if len(t.Tags) > 0 {
		line += " #" + strings.Join(t.Tags, " #")
	}
	fmt.Println(line)
}

// config is the optional yaml file overlaying flag defaults. Values set
// explicitly on the command line or via env win over the file.
type config struct {
	StoreDir    string `yaml:"store_dir"`
	LockTimeout string `yaml:"lock_timeout"`
	Log         struct {
		Enabled  bool   `yaml:"enabled"`
		Filename string `yaml:"filename"`
	} `yaml:"log"`
}

// flagIsSet reports if the option was given explicitly, via flag or env
func flagIsSet(p *flags.Parser, name string) bool {
	opt := p.FindOptionByLongName(name)
	return opt != nil && opt.IsSet()
}

func applyConfig(path string, lockTimeoutExplicit bool) error {
	data, err := os.ReadFile(path) // nolint gosec
	if err != nil {
		return err
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("can't parse yaml: %w", err)
	}

	if opts.StoreDir == "" {
		opts.StoreDir = cfg.StoreDir
	}
	if cfg.LockTimeout != "" && !lockTimeoutExplicit {
		d, err := time.ParseDuration(cfg.LockTimeout)
		if err != nil {
			return fmt.Errorf("bad lock_timeout: %w", err)
		}
		opts.LockTimeout = d
	}
	if cfg.Log.Enabled {
		opts.Log.Enabled = true
	}
	if opts.Log.Filename == "" {
		opts.Log.Filename = cfg.Log.Filename
	}
	return nil
}

func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		log.Setup(log.Out(io.Discard), log.Err(io.Discard))
		return os.Stdout
	}

	logOpts := []log.Option{log.Msec}
	if opts.Dbg {
		logOpts = []log.Option{log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile}
	}

	if opts.Log.Filename != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
			LocalTime:  true,
		}
		log.Setup(append(logOpts, log.Out(fileLogger), log.Err(fileLogger))...)
		return fileLogger
	}
	log.Setup(logOpts...)
	return os.Stdout
}

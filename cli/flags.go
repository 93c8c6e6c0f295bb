package cli

var (
	verbose bool

	// all commands
	configPath string

	// for server start and run
	listenAddr string
	enableCORS bool
	isDaemon   bool
	logPath    string

	// for stats export
	exportFormat string
	exportOutput string

	// for cloud login
	cloudToken string
)

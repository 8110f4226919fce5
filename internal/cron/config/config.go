package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Outbound relay probe, every 15 minutes
	CronScheduleTransferHealth string `env:"CRON_SCHEDULE_TRANSFER_HEALTH" envDefault:"0 */15 * * * *"`
	// Failed-send summary, hourly
	CronScheduleSendSummary string `env:"CRON_SCHEDULE_SEND_SUMMARY" envDefault:"0 0 * * * *"`
}

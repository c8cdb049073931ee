package mqttclient

// Topic names shared with the companion device firmware. Exact spelling
// matters: the firmware matches these strings verbatim.
const (
	TopicConfigDuration      = "swsc/config/duration"
	TopicConfigBreakInterval = "swsc/config/break_interval"
	TopicConfigBreakLength   = "swsc/config/break_length"
	TopicConfigWaterReminder = "swsc/config/water_reminder"

	TopicControlStart = "swsc/control/start"
	TopicControlStop  = "swsc/control/stop"
	TopicControlReset = "swsc/control/reset"

	TopicAlertBreak    = "swsc/alert/break"
	TopicAlertWater    = "swsc/alert/water"
	TopicAlertEnv      = "swsc/alert/env"
	TopicAlertFinished = "swsc/alert/finished"

	TopicDataTemperature = "swsc/data/temperature"
	TopicDataHumidity    = "swsc/data/humidity"
	TopicDataLight       = "swsc/data/light"
	TopicStatusSystem    = "swsc/status/system"

	TopicStatusAll  = "swsc/status/#"
	TopicDataAll    = "swsc/data/#"
	TopicAlertAll   = "swsc/alert/#"
	TopicControlAll = "swsc/control/#"
)

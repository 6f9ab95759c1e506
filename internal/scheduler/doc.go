// Package scheduler triggers the periodic jobs of serve mode (expiry sweep,
// daily reset) with robfig/cron in the server time zone.
package scheduler

package config

import "time"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment
	// unless the memory store is selected.
	DefaultDatabaseURL = ""

	// DefaultStore selects the persistence backend.
	DefaultStore = StorePostgres

	// DefaultEmailQueue is the Redis list external mailers consume.
	DefaultEmailQueue = "kindroute:email"

	// DefaultDispatchInterval is how often the outbox worker polls.
	DefaultDispatchInterval = 2 * time.Second

	// DefaultDispatchBatch is the number of outbox records claimed per poll.
	DefaultDispatchBatch = 50

	// DefaultDispatchMaxAttempts is the number of delivery attempts before a
	// record is marked failed.
	DefaultDispatchMaxAttempts = 5

	// DefaultDispatchLease is how long a claimed record stays invisible to
	// other workers.
	DefaultDispatchLease = 30 * time.Second

	// DefaultDispatchBackoff delays the next attempt after a failed delivery.
	DefaultDispatchBackoff = 10 * time.Second

	// DefaultMemoryOutboxRetention is how long the memory store keeps delivered
	// and failed notifications.
	DefaultMemoryOutboxRetention = 24 * time.Hour

	// DefaultAwardSettleInterval is how often pending awards are retried.
	DefaultAwardSettleInterval = 30 * time.Second

	// DefaultAwardSettleGrace is how old a pending award must be before the
	// settlement loop retries it.
	DefaultAwardSettleGrace = time.Minute

	// DefaultAwardSettleBatch is the number of pending awards retried per tick.
	DefaultAwardSettleBatch = 100

	// DefaultLeaderboardLimit applies when a leaderboard request has no limit.
	DefaultLeaderboardLimit = 10

	// MaxLeaderboardLimit caps leaderboard page size.
	MaxLeaderboardLimit = 100

	// DefaultNotificationLimit applies when a notification feed request has no limit.
	DefaultNotificationLimit = 20

	// MaxNotificationLimit caps notification feed page size.
	MaxNotificationLimit = 100
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

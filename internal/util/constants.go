package util

const DateFormat = "2006-01-02"

const (
	DBDriverMySQL  = "mysql"
	DBDriverSQLite = "sqlite"
)

// 分页与数量上限
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	DefaultStudyQueueSize   = 10
	MaxStudyQueueSize       = 50
	DefaultCardListLimit    = 50
	MaxCardListLimit        = 100
)

package constants

type CachePrefix string

const (
	CachePrefixAS2Message CachePrefix = "AS2_MSG_"
	CachePrefixPollStatus CachePrefix = "POLL_STATUS_"
)

package redis

const defaultKeyPrefix = "mfa"

func lockoutKey(prefix, userID string) string {
	return prefix + ":lockout:" + userID
}

func lockoutPattern(prefix string) string {
	return prefix + ":lockout:*"
}

func lockKey(prefix, userID string) string {
	return prefix + ":lock:" + userID
}

func orDefaultPrefix(prefix string) string {
	if prefix == "" {
		return defaultKeyPrefix
	}
	return prefix
}

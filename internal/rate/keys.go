package rate

import "strconv"

const (
	loginEmailPrefix = "ac:login:e:"
	loginIPPrefix    = "ac:login:ip:"
	refreshPrefix    = "ac:refresh:"
)

func loginEmailKey(email string) string {
	return loginEmailPrefix + email
}

func loginIPKey(ip string) string {
	return loginIPPrefix + ip
}

func refreshKey(accountID int64) string {
	return refreshPrefix + strconv.FormatInt(accountID, 10)
}

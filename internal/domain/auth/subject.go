package auth

import "strconv"

func subjectFromUserID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func userIDFromSubject(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

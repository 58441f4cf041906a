package storage

import "strconv"

// ownerPayload encodes id as the JSON string a committed owner key holds.
func ownerPayload(id int) []byte {
	return []byte(strconv.Quote(strconv.Itoa(id)))
}

package service

import "strings"

// ClassifyAddressConflict reports whether a province name and a user's
// address refer to the same place. Both are lower-cased and either containing
// the other is a conflict, so an empty address conflicts with every province.
func ClassifyAddressConflict(provinceName, userAddress string) bool {
	name := strings.ToLower(provinceName)
	address := strings.ToLower(userAddress)
	return strings.Contains(address, name) || strings.Contains(name, address)
}

// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package utils

import (
	"strings"
)

const (
	pkcs11URIPrefix = "pkcs11:"
	tpmURIPrefix    = "tpm2tss:"
)

// IsPKCS11KeyString reports whether key names a PKCS#11 token URI.
func IsPKCS11KeyString(key string) bool {
	return strings.HasPrefix(key, pkcs11URIPrefix)
}

// IsTPM2KeyString reports whether key names a tpm2tss handle.
func IsTPM2KeyString(key string) bool {
	return strings.HasPrefix(key, tpmURIPrefix)
}

// ResolveKeyString takes a key string and, based on its engine
// prefix, returns the form that engine actually expects. The
// tpm2tss engine is passed prefix+handle (e.g. "tpm2tss:0x81000000")
// to select it, but wants just the handle once selected.
func ResolveKeyString(key string) string {
	if IsTPM2KeyString(key) {
		return key[len(tpmURIPrefix):]
	}
	return key
}
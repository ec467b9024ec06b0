// Copyright 2019 Northern.tech AS
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

package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifierAcceptsMatchingDigest(t *testing.T) {
	payload := "rootfs image bytes"
	sum := sha256.Sum256([]byte(payload))

	v := NewHashVerifier()
	ok, err := v.VerifyHash(context.Background(), strings.NewReader(payload), hex.EncodeToString(sum[:]), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashVerifierRejectsMismatchedDigest(t *testing.T) {
	v := NewHashVerifier()
	ok, err := v.VerifyHash(context.Background(), strings.NewReader("payload"), strings.Repeat("0", 64), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashVerifierReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewHashVerifier()
	_, err := v.VerifyHash(ctx, strings.NewReader("payload"), "", nil)
	assert.Error(t, err)
}

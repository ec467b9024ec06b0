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
	"io/ioutil"

	"github.com/mendersoftware/openssl"
	"github.com/pkg/errors"

	"github.com/tegraota/otainstaller/utils"
)

// SignatureVerifier checks a detached signature over an artifact
// against a trust bundle, using the mendersoftware/openssl engine —
// the same library the teacher links against for artifact signing.
// Invoked once per component when both a signature and a trust bundle
// are configured; failure aborts the component before any writes.
type SignatureVerifier struct{}

func NewSignatureVerifier() *SignatureVerifier { return &SignatureVerifier{} }

// VerifySignature checks the detached signature at signaturePath over
// the file at artifactPath, trusting the public key in the PEM file at
// trustBundlePath. A pkcs11:/tpm2tss: reference is first passed through
// ResolveKeyString (which strips a tpm2tss: prefix and leaves a pkcs11:
// reference unchanged), and the result is still read as a file path;
// keys held by an OpenSSL engine are not loaded.
func (SignatureVerifier) VerifySignature(artifactPath, signaturePath, trustBundlePath string) (bool, error) {
	if utils.IsPKCS11KeyString(trustBundlePath) || utils.IsTPM2KeyString(trustBundlePath) {
		trustBundlePath = utils.ResolveKeyString(trustBundlePath)
	}
	trustPEM, err := ioutil.ReadFile(trustBundlePath)
	if err != nil {
		return false, errors.Wrap(err, "verifier: read trust bundle")
	}
	sig, err := ioutil.ReadFile(signaturePath)
	if err != nil {
		return false, errors.Wrap(err, "verifier: read signature")
	}
	data, err := ioutil.ReadFile(artifactPath)
	if err != nil {
		return false, errors.Wrap(err, "verifier: read artifact")
	}

	key, err := openssl.LoadPublicKeyFromPEM(trustPEM)
	if err != nil {
		return false, errors.Wrap(err, "verifier: load trust key")
	}

	if err := key.VerifyPKCS1v15(openssl.SHA256_Method, data, sig); err != nil {
		return false, nil
	}
	return true, nil
}

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

package stream

// Writer is the push side of the install pipeline. WriteAll either
// writes every byte of p or returns an error describing how far it
// got; partial success is not representable to callers. FsyncNow
// forces durability of everything written so far. Close is a
// best-effort cleanup and must not swallow a previously reported
// error.
type Writer interface {
	WriteAll(p []byte) error
	FsyncNow() error
	Close() error
}

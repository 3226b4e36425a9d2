/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import "errors"

var (
	// ErrResolution means resolver returned no address for the server
	ErrResolution = errors.New("ntp server resolution failed")
	// ErrRequestLost means no valid response arrived before the failure alarm fired
	ErrRequestLost = errors.New("ntp request lost")
	// ErrInvalidResponse means expected server replied with malformed length, mode or stratum
	ErrInvalidResponse = errors.New("invalid ntp response")
	// ErrAllocation means request could not be built or handed to the transport
	ErrAllocation = errors.New("failed to allocate ntp request")
)

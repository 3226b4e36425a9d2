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

/*
Package client implements a single-outstanding-request NTP poll client.

Every poll interval it resolves server hostname, sends a minimal client request,
validates the response and reports unix time (or a failure) to the Sink.
All state transitions happen on one goroutine which consumes Events:
resolver, transport and failure alarm never touch session state directly,
they only post events to the queue.
*/
package client

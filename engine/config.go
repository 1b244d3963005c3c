// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import "github.com/packetd/apiserverd/dispatcher"

// Config is the engine's own tunable surface, unpacked from the "engine"
// config section. The admin server and the logger are configured through
// their own top-level sections (server.New and setupLogger each unpack
// their own child directly), matching how controller.Controller splits
// configuration across its sub-components.
type Config struct {
	Dispatcher dispatcher.Config `config:"dispatcher"`

	Store struct {
		// Root is the versioned content store's on-disk directory.
		Root string `config:"root"`
	} `config:"store"`
}

func (c Config) storeRoot() string {
	if c.Store.Root == "" {
		return "data"
	}
	return c.Store.Root
}

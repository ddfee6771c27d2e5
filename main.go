// Copyright 2025 AI Redefined Inc. <dev+slipscan@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	// Bundle the time zone database, the runtime image has none
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/slipscan/slipscan/cmd"
)

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	cmd.Execute()
}

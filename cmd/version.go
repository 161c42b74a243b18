// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

// Version is the cortexq release, set at build time with
// -ldflags "-X cortexq/cli/cmd.Version=v1.2.3".
var Version = "0.0.0-dev"

// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"github.com/cockroachdb/errors"
)

// ErrUnknownProperty is returned by the property query entry points when the
// requested property name or kind is not recognized.
var ErrUnknownProperty = errors.New("shale: unknown property")

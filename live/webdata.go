// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"github.com/gobuffalo/packr"
)

var WebdataBox = packr.NewBox("webdata")

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

type principalContextIDType string

// PrincipalContextID is the context key holding the authenticated username
const PrincipalContextID principalContextIDType = "principal"

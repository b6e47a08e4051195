// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package cmdb

import "github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"

// hostSearchRequest selects the hosts under topology nodes of a business
type hostSearchRequest struct {
	BizID int              `json:"bk_biz_id"`
	Nodes []model.TopoNode `json:"bk_nodes"`
}

// envelope is the common CMDB response wrapper
type envelope struct {
	Result  bool            `json:"result"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    hostSearchReply `json:"data"`
}

type hostSearchReply struct {
	Count int        `json:"count"`
	Info  []hostInfo `json:"info"`
}

type hostInfo struct {
	InnerIP   string `json:"bk_host_innerip"`
	BkCloudID int    `json:"bk_cloud_id"`
}

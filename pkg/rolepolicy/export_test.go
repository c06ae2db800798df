package rolepolicy

var ReloadOn = reloadOn

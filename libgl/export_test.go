package libgl

var LoadRegion = loadRegion
